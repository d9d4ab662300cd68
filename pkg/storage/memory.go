package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory keeps visitor state in process. Intended for local development and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		data: make(map[string]map[string]memoryEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (m *Memory) Load(_ context.Context, visitorID, slot string) ([]byte, bool, error) {
	if err := checkKey(visitorID, slot); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.data[visitorID][slot]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (m *Memory) Save(_ context.Context, visitorID, slot string, value []byte) error {
	if err := checkKey(visitorID, slot); err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	slots, ok := m.data[visitorID]
	if !ok {
		slots = make(map[string]memoryEntry)
		m.data[visitorID] = slots
	}
	slots[slot] = memoryEntry{value: stored, expiresAt: expiry(m.now(), m.ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, visitorID string, slots ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.data[visitorID]
	if !ok {
		return nil
	}
	for _, slot := range slots {
		delete(current, slot)
	}
	if len(current) == 0 {
		delete(m.data, visitorID)
	}
	return nil
}

// Package observe fans state snapshots out to subscribers.
package observe

import "sync"

// Hub delivers every published value to the current subscribers, in subscription order.
// Subscribers run on the publishing goroutine after the hub lock is released.
type Hub[T any] struct {
	mtx   sync.RWMutex
	next  uint64
	order []uint64
	subs  map[uint64]func(T)
}

// Subscribe registers fn and returns a func that removes it. Calling the returned func twice is safe.
func (h *Hub[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.subs == nil {
		h.subs = make(map[uint64]func(T))
	}
	h.next++
	id := h.next
	h.subs[id] = fn
	h.order = append(h.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub[T]) remove(id uint64) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	delete(h.subs, id)
	for i, candidate := range h.order {
		if candidate == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Publish calls every subscriber with v.
func (h *Hub[T]) Publish(v T) {
	h.mtx.RLock()
	fns := make([]func(T), 0, len(h.order))
	for _, id := range h.order {
		fns = append(fns, h.subs[id])
	}
	h.mtx.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len reports the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return len(h.subs)
}

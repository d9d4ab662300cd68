package storage

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Hour)

	if _, ok, err := store.Load(ctx, "v1", SlotCartLines); err != nil || ok {
		t.Fatalf("expected empty slot, ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, "v1", SlotCartLines, []byte(`[]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx, "v1", SlotCartLines)
	if err != nil || !ok || string(got) != `[]` {
		t.Fatalf("unexpected load %q ok=%v err=%v", got, ok, err)
	}
	if err := store.Delete(ctx, "v1", SlotCartLines, SlotSessionToken); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "v1", SlotCartLines); ok {
		t.Fatal("expected slot to be gone")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Save(ctx, "v1", SlotSessionToken, []byte("tok")); err != nil {
		t.Fatalf("save: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Load(ctx, "v1", SlotSessionToken); ok {
		t.Fatal("expected expired slot to be hidden")
	}
}

func TestMemoryIsolatesVisitors(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(0)
	_ = store.Save(ctx, "a", SlotCartLines, []byte("a-cart"))
	_ = store.Save(ctx, "b", SlotCartLines, []byte("b-cart"))

	got, _, _ := store.Load(ctx, "a", SlotCartLines)
	if string(got) != "a-cart" {
		t.Fatalf("unexpected value %q", got)
	}
	got[0] = 'X'
	again, _, _ := store.Load(ctx, "a", SlotCartLines)
	if string(again) != "a-cart" {
		t.Fatal("stored value must not alias returned slice")
	}
}

func TestRejectsEmptyKeys(t *testing.T) {
	store := NewMemory(0)
	if err := store.Save(context.Background(), "", SlotCartLines, nil); err == nil {
		t.Fatal("expected error for empty visitor id")
	}
	if _, _, err := store.Load(context.Background(), "v1", " "); err == nil {
		t.Fatal("expected error for empty slot")
	}
}

type fakeKV struct {
	data map[string]string
	ttls map[string]time.Duration
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) VisitorStateKey(visitorID, slot string) string {
	return "gh:visitor:" + visitorID + ":" + slot
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	kv := &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
	store := NewRedis(kv, 30*time.Minute)

	if _, ok, err := store.Load(ctx, "v1", SlotSessionUser); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, "v1", SlotSessionUser, []byte(`{"id":7}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if kv.ttls["gh:visitor:v1:session.user"] != 30*time.Minute {
		t.Fatalf("expected ttl to be applied, got %v", kv.ttls)
	}
	got, ok, err := store.Load(ctx, "v1", SlotSessionUser)
	if err != nil || !ok || string(got) != `{"id":7}` {
		t.Fatalf("unexpected load %q ok=%v err=%v", got, ok, err)
	}
	if err := store.Delete(ctx, "v1", SlotSessionUser); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "v1", SlotSessionUser); ok {
		t.Fatal("expected slot to be removed")
	}
}

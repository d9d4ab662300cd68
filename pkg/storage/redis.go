package storage

import (
	"context"
	"time"

	"github.com/angelmondragon/gheehive-storefront/pkg/redis"
)

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	VisitorStateKey(visitorID, slot string) string
}

// Redis stores each slot under its own namespaced key with a sliding TTL.
type Redis struct {
	kv  redisKV
	ttl time.Duration
}

func NewRedis(kv redisKV, ttl time.Duration) *Redis {
	return &Redis{kv: kv, ttl: ttl}
}

func (r *Redis) Load(ctx context.Context, visitorID, slot string) ([]byte, bool, error) {
	if err := checkKey(visitorID, slot); err != nil {
		return nil, false, err
	}
	raw, err := r.kv.Get(ctx, r.kv.VisitorStateKey(visitorID, slot))
	if redis.IsMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(raw), true, nil
}

func (r *Redis) Save(ctx context.Context, visitorID, slot string, value []byte) error {
	if err := checkKey(visitorID, slot); err != nil {
		return err
	}
	return r.kv.Set(ctx, r.kv.VisitorStateKey(visitorID, slot), value, r.ttl)
}

func (r *Redis) Delete(ctx context.Context, visitorID string, slots ...string) error {
	if len(slots) == 0 {
		return nil
	}
	keys := make([]string, 0, len(slots))
	for _, slot := range slots {
		keys = append(keys, r.kv.VisitorStateKey(visitorID, slot))
	}
	return r.kv.Del(ctx, keys...)
}

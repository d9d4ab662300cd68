// Package storage persists per-visitor client state. Each visitor owns a set of
// named slots; the session, cart and checkout stores are the only writers.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	SlotSessionToken = "session.token"
	SlotSessionUser  = "session.user"
	SlotCartLines    = "cart.lines"

	// SlotCheckoutPayment holds an online payment that is awaiting the gateway or
	// confirmation, so the submit block survives eviction and restarts.
	SlotCheckoutPayment = "checkout.payment"
)

// Store is the durable key/value surface behind one visitor's state containers.
type Store interface {
	// Load returns the raw slot value; ok is false when the slot was never written.
	Load(ctx context.Context, visitorID, slot string) (value []byte, ok bool, err error)
	Save(ctx context.Context, visitorID, slot string, value []byte) error
	Delete(ctx context.Context, visitorID string, slots ...string) error
}

func checkKey(visitorID, slot string) error {
	if strings.TrimSpace(visitorID) == "" {
		return fmt.Errorf("visitor id is required")
	}
	if strings.TrimSpace(slot) == "" {
		return fmt.Errorf("slot is required")
	}
	return nil
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

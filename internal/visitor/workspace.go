package visitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/internal/checkout"
	"github.com/angelmondragon/gheehive-storefront/internal/identity"
	"github.com/angelmondragon/gheehive-storefront/internal/session"
)

// Workspace holds the live state containers of one visitor.
type Workspace struct {
	ID       string
	Session  *session.Store
	Cart     *cart.Store
	Gate     *identity.Gate
	Checkout *checkout.Orchestrator

	lastSeen atomic.Int64
}

func (w *Workspace) touch(now time.Time) {
	w.lastSeen.Store(now.UnixNano())
}

// LastSeen reports when the workspace was last handed out.
func (w *Workspace) LastSeen() time.Time {
	return time.Unix(0, w.lastSeen.Load())
}

// busy reports whether evicting the workspace would interrupt a submission.
// Open payments are persisted and restored on rebuild, so they do not pin it.
func (w *Workspace) busy() bool {
	return w.Checkout.Snapshot().Processing
}

func (r *Registry) build(ctx context.Context, visitorID string) (*Workspace, error) {
	ctx = r.params.Logger.WithVisitorID(ctx, visitorID)

	sess, err := session.NewStore(visitorID, r.params.Storage)
	if err != nil {
		return nil, err
	}
	if err := sess.Load(ctx); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	opts := []cart.Option{cart.WithMetrics(r.params.Metrics), cart.WithLogger(r.params.Logger)}
	if r.params.Locker != nil {
		opts = append(opts, cart.WithLocker(r.params.Locker))
	}
	c, err := cart.NewStore(visitorID, r.params.Storage, sess, r.remote, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Load(ctx); err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	gate, err := identity.NewGate(r.params.Backend, r.params.Backend, sess, c, identity.Config{
		ResendCooldown: r.params.Checkout.OTPCooldown,
		OTPLength:      r.params.Checkout.OTPLength,
		Now:            r.params.Now,
		Metrics:        r.params.Metrics,
		Logger:         r.params.Logger,
	})
	if err != nil {
		return nil, err
	}

	orch, err := checkout.NewOrchestrator(r.params.Backend, r.params.Coupons, c, sess, checkout.Config{
		Pricing:   r.params.Pricing,
		Gateway:   r.params.Gateway,
		Events:    r.params.Events,
		Metrics:   r.params.Metrics,
		Logger:    r.params.Logger,
		Now:       r.params.Now,
		Storage:   r.params.Storage,
		VisitorID: visitorID,
	})
	if err != nil {
		return nil, err
	}
	if err := orch.Load(ctx); err != nil {
		return nil, fmt.Errorf("load checkout: %w", err)
	}

	return &Workspace{
		ID:       visitorID,
		Session:  sess,
		Cart:     c,
		Gate:     gate,
		Checkout: orch,
	}, nil
}

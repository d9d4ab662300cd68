package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/storage"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
)

// paymentRecord is the persisted form of an open online payment.
type paymentRecord struct {
	Pending     *PendingPayment `json:"pending,omitempty"`
	Unconfirmed *PendingPayment `json:"unconfirmed,omitempty"`
}

// Load restores an open payment recorded by an earlier workspace of this visitor.
func (o *Orchestrator) Load(ctx context.Context) error {
	return o.reload(ctx)
}

// reload replaces the in-memory payment state with the persisted record. The
// record is written before every in-memory change, so it is the source of truth
// when another instance or an evicted workspace moved the payment on.
func (o *Orchestrator) reload(ctx context.Context) error {
	if o.cfg.Storage == nil {
		return nil
	}
	raw, found, err := o.cfg.Storage.Load(ctx, o.cfg.VisitorID, storage.SlotCheckoutPayment)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout payment")
	}
	var rec paymentRecord
	if found {
		if err := json.Unmarshal(raw, &rec); err != nil {
			o.logError(ctx, "discarding unreadable checkout payment", err)
			rec = paymentRecord{}
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = rec.Pending
	o.unconfirmed = rec.Unconfirmed
	if (rec.Pending != nil || rec.Unconfirmed != nil) && o.step != enums.CheckoutStepPayment {
		o.step = enums.CheckoutStepPayment
		o.completion = nil
	}
	return nil
}

// recordPayment writes the open payment state and then swaps it in. A failed
// write is logged and the in-memory copy still changes, keeping this instance
// blocked.
func (o *Orchestrator) recordPayment(ctx context.Context, pending, unconfirmed *PendingPayment) {
	if err := o.persistPayment(ctx, pending, unconfirmed); err != nil {
		o.logError(ctx, "persist checkout payment", err)
	}
	o.mu.Lock()
	o.pending = pending
	o.unconfirmed = unconfirmed
	o.mu.Unlock()
}

func (o *Orchestrator) persistPayment(ctx context.Context, pending, unconfirmed *PendingPayment) error {
	if o.cfg.Storage == nil {
		return nil
	}
	if pending == nil && unconfirmed == nil {
		return o.cfg.Storage.Delete(ctx, o.cfg.VisitorID, storage.SlotCheckoutPayment)
	}
	encoded, err := json.Marshal(paymentRecord{Pending: pending, Unconfirmed: unconfirmed})
	if err != nil {
		return fmt.Errorf("encode checkout payment: %w", err)
	}
	return o.cfg.Storage.Save(ctx, o.cfg.VisitorID, storage.SlotCheckoutPayment, encoded)
}

// releaseStalled cancels a pending order whose gateway checkout never opened.
// No money can have moved for it, so the visitor may go back or pay another way.
func (o *Orchestrator) releaseStalled(ctx context.Context, pending PendingPayment) error {
	token, _, _ := o.session.Current()
	cancelled := enums.OrderStatusCancelled
	failed := enums.PaymentStatusFailed
	if _, err := o.orders.UpdateOrder(ctx, token, pending.OrderID, strapi.OrderUpdate{
		OrderStatus:   &cancelled,
		PaymentStatus: &failed,
	}); err != nil {
		o.logError(ctx, "cancel stalled order", err)
		return err
	}
	o.cfg.Metrics.CheckoutSubmitted(enums.PaymentMethodRazorpay.String(), "released")

	o.mu.Lock()
	unconfirmed := o.unconfirmed
	o.mu.Unlock()
	o.recordPayment(ctx, nil, unconfirmed)
	o.mu.Lock()
	o.lastErr = ""
	o.mu.Unlock()
	return nil
}

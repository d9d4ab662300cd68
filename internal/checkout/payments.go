package checkout

import (
	"context"
	"strconv"

	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/pubsub"
	"github.com/angelmondragon/gheehive-storefront/pkg/razorpay"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
)

const msgGatewayNotLoaded = "payment gateway not loaded"

func (o *Orchestrator) submitCOD(ctx context.Context, sub submission) (*Result, error) {
	method := enums.PaymentMethodCOD
	order, err := o.orders.CreateOrder(ctx, sub.token, o.buildOrder(sub, method))
	if err != nil {
		o.cfg.Metrics.CheckoutSubmitted(method.String(), "failed")
		return nil, err
	}
	o.cfg.Metrics.CheckoutSubmitted(method.String(), "placed")
	o.publish(ctx, placedEvent(order, sub, method))

	return &Result{Method: method, Completion: o.finish(ctx, order.ID, orderNumber(order))}, nil
}

// submitOnline creates the order before anything touches the gateway. When the
// gateway checks fail the order is kept without options: a retry reuses it, and
// going back or paying cash on delivery cancels it.
func (o *Orchestrator) submitOnline(ctx context.Context, sub submission) (*Result, error) {
	method := enums.PaymentMethodRazorpay
	order, err := o.orders.CreateOrder(ctx, sub.token, o.buildOrder(sub, method))
	if err != nil {
		o.cfg.Metrics.CheckoutSubmitted(method.String(), "failed")
		return nil, err
	}
	o.publish(ctx, placedEvent(order, sub, method))

	pending := PendingPayment{
		OrderID:        order.ID,
		OrderNumber:    orderNumber(order),
		GatewayOrderID: order.RazorpayOrderID,
		Total:          order.Total,
	}
	if pending.Total.IsZero() {
		pending.Total = sub.quote.Total
	}

	opts, err := o.paymentOptions(pending, sub)
	if err != nil {
		o.recordPayment(ctx, &pending, nil)
		o.cfg.Metrics.CheckoutSubmitted(method.String(), "gateway_unavailable")
		return nil, err
	}
	pending.Options = &opts
	o.recordPayment(ctx, &pending, nil)

	o.cfg.Metrics.CheckoutSubmitted(method.String(), "awaiting_payment")
	return &Result{Method: method, Payment: clonePending(&pending)}, nil
}

// resumePending hands back the options of an order already awaiting payment.
func (o *Orchestrator) resumePending(ctx context.Context, pending PendingPayment) (*Result, error) {
	token, user, identified := o.session.Current()
	if !identified {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "verify your phone number to continue")
	}
	o.mu.Lock()
	addr := o.address
	o.mu.Unlock()

	sub := submission{token: token, user: user}
	if addr != nil {
		sub.address = *addr
	}
	opts, err := o.paymentOptions(pending, sub)
	if err != nil {
		o.setError(err)
		return nil, err
	}
	pending.Options = &opts
	o.recordPayment(ctx, &pending, nil)
	o.mu.Lock()
	o.lastErr = ""
	o.mu.Unlock()
	return &Result{Method: enums.PaymentMethodRazorpay, Payment: clonePending(&pending)}, nil
}

func (o *Orchestrator) paymentOptions(pending PendingPayment, sub submission) (razorpay.CheckoutOptions, error) {
	if o.cfg.Gateway == nil {
		return razorpay.CheckoutOptions{}, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, msgGatewayNotLoaded)
	}
	opts, err := o.cfg.Gateway.Options(razorpay.OptionsInput{
		GatewayOrderID: pending.GatewayOrderID,
		OrderNumber:    pending.OrderNumber,
		Total:          pending.Total,
		Prefill:        prefill(sub),
		Notes: map[string]string{
			"orderId": strconv.FormatInt(pending.OrderID, 10),
			"userId":  strconv.FormatInt(sub.user.ID, 10),
		},
	})
	if err != nil {
		return razorpay.CheckoutOptions{}, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, err.Error())
	}
	return opts, nil
}

// RetryPayment reopens the gateway for the pending order without resubmitting it.
func (o *Orchestrator) RetryPayment(ctx context.Context) (*Result, error) {
	release, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := o.reload(ctx); err != nil {
		return nil, err
	}
	o.mu.Lock()
	pending := o.pending
	o.mu.Unlock()
	if pending == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment to retry")
	}
	return o.resumePending(ctx, *pending)
}

// PaymentSucceeded confirms a gateway success with the backend. If the
// confirmation fails the order is parked as unconfirmed and submits stay blocked
// until ReconcilePayment sees it paid; it is never retried automatically.
func (o *Orchestrator) PaymentSucceeded(ctx context.Context, p razorpay.Success) (*Result, error) {
	release, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	pending, err := o.openPayment(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}
	if o.cfg.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, msgGatewayNotLoaded)
	}
	if !o.cfg.Gateway.VerifyPayment(p) {
		o.cfg.Metrics.PaymentCallback("invalid_signature")
		err := pkgerrors.New(pkgerrors.CodeValidation, "payment signature verification failed")
		o.setError(err)
		return nil, err
	}

	token, user, _ := o.session.Current()
	paid := enums.PaymentStatusPaid
	_, err = o.orders.UpdateOrder(ctx, token, pending.OrderID, strapi.OrderUpdate{
		PaymentStatus:     &paid,
		RazorpayOrderID:   p.OrderID,
		RazorpayPaymentID: p.PaymentID,
		RazorpaySignature: p.Signature,
	})
	if err != nil {
		o.logError(ctx, "confirm payment", err)
		o.cfg.Metrics.PaymentCallback("unconfirmed")

		parked := *pending
		o.recordPayment(ctx, nil, &parked)
		o.mu.Lock()
		o.lastErr = msgUnconfirmed
		o.mu.Unlock()

		o.publish(ctx, pubsub.OrderEvent{
			Type:        pubsub.PaymentUnconfirmed,
			OrderID:     pending.OrderID,
			OrderNumber: pending.OrderNumber,
			UserID:      user.ID,
			Reason:      err.Error(),
		})
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentUnconfirmed, err, msgUnconfirmed).
			WithDetails(map[string]any{"orderId": pending.OrderID, "paymentId": p.PaymentID})
	}

	o.cfg.Metrics.PaymentCallback("confirmed")
	o.publish(ctx, pubsub.OrderEvent{
		Type:          pubsub.PaymentConfirmed,
		OrderID:       pending.OrderID,
		OrderNumber:   pending.OrderNumber,
		UserID:        user.ID,
		PaymentMethod: enums.PaymentMethodRazorpay.String(),
		Total:         pending.Total.String(),
	})
	return &Result{Method: enums.PaymentMethodRazorpay, Completion: o.finish(ctx, pending.OrderID, pending.OrderNumber)}, nil
}

// PaymentFailed records the gateway's failure. The order stays pending and can be retried.
func (o *Orchestrator) PaymentFailed(ctx context.Context, f razorpay.Failure) error {
	release, err := o.acquire()
	if err != nil {
		return err
	}
	defer release()

	pending, err := o.openPayment(ctx, f.Error.Metadata.OrderID)
	if err != nil {
		return err
	}

	msg := f.Error.Message()
	o.cfg.Metrics.PaymentCallback("failed")
	_, user, _ := o.session.Current()
	o.publish(ctx, pubsub.OrderEvent{
		Type:        pubsub.PaymentFailed,
		OrderID:     pending.OrderID,
		OrderNumber: pending.OrderNumber,
		UserID:      user.ID,
		Reason:      msg,
	})

	err = pkgerrors.New(pkgerrors.CodePaymentFailed, msg).WithDetails(map[string]string{
		"code":   f.Error.Code,
		"reason": f.Error.Reason,
		"source": f.Error.Source,
		"step":   f.Error.Step,
	})
	o.setError(err)
	return err
}

// openPayment returns the pending payment a gateway callback refers to.
func (o *Orchestrator) openPayment(ctx context.Context, gatewayOrderID string) (*PendingPayment, error) {
	if err := o.reload(ctx); err != nil {
		return nil, err
	}
	o.mu.Lock()
	pending := o.pending
	o.mu.Unlock()
	if pending == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment in progress")
	}
	if gatewayOrderID == "" || gatewayOrderID != pending.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment does not match the pending order")
	}
	return pending, nil
}

// CancelPending forgets the pending online payment of a cancelled order.
func (o *Orchestrator) CancelPending(ctx context.Context, orderID int64) {
	if err := o.reload(ctx); err != nil {
		o.logError(ctx, "reload checkout payment", err)
	}
	o.mu.Lock()
	pending, unconfirmed := o.pending, o.unconfirmed
	o.mu.Unlock()
	if pending == nil || pending.OrderID != orderID {
		return
	}
	o.recordPayment(ctx, nil, unconfirmed)
	o.mu.Lock()
	o.lastErr = ""
	o.mu.Unlock()
}

// ReconcilePayment re-reads the open order and completes the checkout once the
// backend reports it paid.
func (o *Orchestrator) ReconcilePayment(ctx context.Context) (*Result, error) {
	release, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := o.reload(ctx); err != nil {
		return nil, err
	}
	o.mu.Lock()
	target := o.unconfirmed
	if target == nil {
		target = o.pending
	}
	o.mu.Unlock()
	if target == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment to reconcile")
	}

	token, _, _ := o.session.Current()
	order, err := o.orders.GetOrder(ctx, token, target.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return &Result{Method: enums.PaymentMethodRazorpay, Payment: clonePending(target)}, nil
	}
	o.cfg.Metrics.PaymentCallback("reconciled")
	return &Result{Method: enums.PaymentMethodRazorpay, Completion: o.finish(ctx, target.OrderID, target.OrderNumber)}, nil
}

func prefill(sub submission) razorpay.Prefill {
	name := sub.address.Shipping.FullName
	if name == "" {
		name = sub.user.Address.FullName
	}
	if name == "" {
		name = sub.user.Username
	}
	contact := sub.address.Shipping.Phone
	if contact == "" {
		contact = sub.user.Phone
	}
	return razorpay.Prefill{Name: name, Email: sub.user.Email, Contact: contact}
}

func placedEvent(order *strapi.Order, sub submission, method enums.PaymentMethod) pubsub.OrderEvent {
	total := order.Total
	if total.IsZero() {
		total = sub.quote.Total
	}
	return pubsub.OrderEvent{
		Type:          pubsub.OrderPlaced,
		OrderID:       order.ID,
		OrderNumber:   orderNumber(order),
		UserID:        sub.user.ID,
		PaymentMethod: method.String(),
		Total:         total.String(),
	}
}

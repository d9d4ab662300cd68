// Package checkout drives a visitor from a filled cart to a placed order:
// address, then payment, then completion.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/gheehive-storefront/internal/address"
	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/internal/coupons"
	"github.com/angelmondragon/gheehive-storefront/internal/session"
	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/metrics"
	"github.com/angelmondragon/gheehive-storefront/pkg/pubsub"
	"github.com/angelmondragon/gheehive-storefront/pkg/razorpay"
	"github.com/angelmondragon/gheehive-storefront/pkg/storage"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
	"github.com/shopspring/decimal"
)

const msgUnconfirmed = "payment succeeded but confirmation failed, contact support"

type orderAPI interface {
	CreateOrder(ctx context.Context, token string, order strapi.OrderCreate) (*strapi.Order, error)
	UpdateOrder(ctx context.Context, token string, id int64, update strapi.OrderUpdate) (*strapi.Order, error)
	GetOrder(ctx context.Context, token string, id int64) (*strapi.Order, error)
}

type couponEvaluator interface {
	Apply(ctx context.Context, token, code string, subtotal decimal.Decimal) (*coupons.Discount, error)
}

type cartStore interface {
	Lines() []cart.Line
	TotalPrice() decimal.Decimal
	IsEmpty() bool
	Clear(ctx context.Context) (cart.Result, error)
}

type sessionReader interface {
	Current() (string, session.User, bool)
}

type eventPublisher interface {
	Publish(ctx context.Context, event pubsub.OrderEvent) error
}

// AddressInput is the first checkout step.
type AddressInput struct {
	Shipping       types.Address  `json:"shipping"`
	Billing        *types.Address `json:"billing,omitempty"`
	SameAsShipping bool           `json:"sameAsShipping"`
	Notes          string         `json:"notes,omitempty"`
}

// billing returns the effective billing address.
func (a AddressInput) billing() types.Address {
	if a.SameAsShipping || a.Billing == nil {
		return a.Shipping.Normalize()
	}
	return a.Billing.Normalize()
}

// Completion is the placed order and where the visitor goes next.
type Completion struct {
	OrderID     int64  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Redirect    string `json:"redirect"`
	CartWarning bool   `json:"cartWarning,omitempty"`
}

// PendingPayment is an online order waiting on the gateway.
type PendingPayment struct {
	OrderID        int64                     `json:"orderId"`
	OrderNumber    string                    `json:"orderNumber"`
	GatewayOrderID string                    `json:"gatewayOrderId,omitempty"`
	Total          decimal.Decimal           `json:"total"`
	Options        *razorpay.CheckoutOptions `json:"options,omitempty"`
}

// Result is returned by the operations that can place or pay for an order.
type Result struct {
	Method     enums.PaymentMethod `json:"method,omitempty"`
	Completion *Completion         `json:"completion,omitempty"`
	Payment    *PendingPayment     `json:"payment,omitempty"`
}

type Snapshot struct {
	Step        enums.CheckoutStep `json:"step"`
	Address     *AddressInput      `json:"address,omitempty"`
	Quote       Quote              `json:"quote"`
	Payment     *PendingPayment    `json:"payment,omitempty"`
	Unconfirmed *PendingPayment    `json:"unconfirmed,omitempty"`
	Completion  *Completion        `json:"completion,omitempty"`
	Error       string             `json:"error,omitempty"`
	Processing  bool               `json:"processing"`
}

type Config struct {
	Pricing Pricing
	// Gateway is nil when the payment gateway is not loaded.
	Gateway *razorpay.Gateway
	Events  eventPublisher
	Metrics *metrics.Storefront
	Logger  *logger.Logger
	Now     func() time.Time
	// Storage keeps the open payment under VisitorID. Without it the payment
	// state lives only in memory.
	Storage   storage.Store
	VisitorID string
}

type paymentHandler func(ctx context.Context, sub submission) (*Result, error)

type submission struct {
	token   string
	user    session.User
	lines   []cart.Line
	address AddressInput
	quote   Quote
}

// Orchestrator is one visitor's checkout. Operations that change it are
// exclusive: a second one started while another is running is rejected.
type Orchestrator struct {
	mu         sync.Mutex
	processing atomic.Bool

	orders   orderAPI
	coupons  couponEvaluator
	cart     cartStore
	session  sessionReader
	cfg      Config
	handlers map[enums.PaymentMethod]paymentHandler

	step        enums.CheckoutStep
	address     *AddressInput
	coupon      *coupons.Discount
	pending     *PendingPayment
	unconfirmed *PendingPayment
	completion  *Completion
	lastErr     string
}

func NewOrchestrator(orders orderAPI, evaluator couponEvaluator, c cartStore, sess sessionReader, cfg Config) (*Orchestrator, error) {
	if orders == nil {
		return nil, fmt.Errorf("order api required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("coupon evaluator required")
	}
	if c == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if sess == nil {
		return nil, fmt.Errorf("session required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Storage != nil && strings.TrimSpace(cfg.VisitorID) == "" {
		return nil, fmt.Errorf("visitor id required with storage")
	}
	o := &Orchestrator{
		orders:  orders,
		coupons: evaluator,
		cart:    c,
		session: sess,
		cfg:     cfg,
		step:    enums.CheckoutStepAddress,
	}
	o.handlers = map[enums.PaymentMethod]paymentHandler{
		enums.PaymentMethodCOD:      o.submitCOD,
		enums.PaymentMethodRazorpay: o.submitOnline,
	}
	return o, nil
}

// acquire marks the orchestrator busy. The returned func must be called to release it.
func (o *Orchestrator) acquire() (func(), error) {
	if !o.processing.CompareAndSwap(false, true) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout is already processing")
	}
	return func() { o.processing.Store(false) }, nil
}

// SubmitAddress validates shipping and billing and moves to the payment step.
// Every violated rule is reported.
func (o *Orchestrator) SubmitAddress(ctx context.Context, in AddressInput) (Snapshot, error) {
	release, err := o.acquire()
	if err != nil {
		return o.Snapshot(), err
	}
	defer release()

	if err := o.ensureNoOpenPayment(ctx); err != nil {
		return o.Snapshot(), err
	}
	in.Shipping = in.Shipping.Normalize()
	if in.Billing != nil && !in.SameAsShipping {
		b := in.Billing.Normalize()
		in.Billing = &b
	} else {
		in.Billing = nil
	}
	in.Notes = strings.TrimSpace(in.Notes)

	if err := address.ValidatePair(in.Shipping, in.Billing, in.SameAsShipping); err != nil {
		o.setError(err)
		return o.Snapshot(), err
	}

	o.mu.Lock()
	o.address = &in
	o.step = enums.CheckoutStepPayment
	o.completion = nil
	o.lastErr = ""
	o.mu.Unlock()
	return o.Snapshot(), nil
}

// Back returns to the address step. It is the only way back.
func (o *Orchestrator) Back(ctx context.Context) (Snapshot, error) {
	release, err := o.acquire()
	if err != nil {
		return o.Snapshot(), err
	}
	defer release()

	if err := o.ensureNoOpenPayment(ctx); err != nil {
		return o.Snapshot(), err
	}
	o.mu.Lock()
	o.step = enums.CheckoutStepAddress
	o.completion = nil
	o.lastErr = ""
	o.mu.Unlock()
	return o.Snapshot(), nil
}

func (o *Orchestrator) ApplyCoupon(ctx context.Context, code string) (Snapshot, error) {
	release, err := o.acquire()
	if err != nil {
		return o.Snapshot(), err
	}
	defer release()

	if err := o.ensureNoOpenPayment(ctx); err != nil {
		return o.Snapshot(), err
	}
	token, _, _ := o.session.Current()
	discount, err := o.coupons.Apply(ctx, token, code, o.cart.TotalPrice())
	if err != nil {
		o.setError(err)
		return o.Snapshot(), err
	}
	o.mu.Lock()
	o.coupon = discount
	o.lastErr = ""
	o.mu.Unlock()
	return o.Snapshot(), nil
}

func (o *Orchestrator) RemoveCoupon(ctx context.Context) (Snapshot, error) {
	release, err := o.acquire()
	if err != nil {
		return o.Snapshot(), err
	}
	defer release()

	if err := o.ensureNoOpenPayment(ctx); err != nil {
		return o.Snapshot(), err
	}
	o.mu.Lock()
	o.coupon = nil
	o.mu.Unlock()
	return o.Snapshot(), nil
}

// Quote prices the current cart.
func (o *Orchestrator) Quote() Quote {
	o.mu.Lock()
	coupon := o.coupon
	o.mu.Unlock()
	return o.cfg.Pricing.Quote(o.cart.TotalPrice(), coupon)
}

// Submit places the order with the chosen payment method.
func (o *Orchestrator) Submit(ctx context.Context, method enums.PaymentMethod) (*Result, error) {
	handler, ok := o.handlers[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]string{"paymentMethod": "must be COD or RAZORPAY"})
	}
	release, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := o.reload(ctx); err != nil {
		return nil, err
	}
	o.mu.Lock()
	step, addr, pending, unconfirmed := o.step, o.address, o.pending, o.unconfirmed
	o.mu.Unlock()

	if unconfirmed != nil {
		return nil, pkgerrors.New(pkgerrors.CodePaymentUnconfirmed, msgUnconfirmed).
			WithDetails(map[string]any{"orderId": unconfirmed.OrderID})
	}
	if pending != nil {
		switch {
		case method == enums.PaymentMethodRazorpay:
			return o.resumePending(ctx, *pending)
		case pending.Options != nil:
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("an online payment is pending for order #%s", pending.OrderNumber))
		}
		if err := o.releaseStalled(ctx, *pending); err != nil {
			o.setError(err)
			return nil, err
		}
	}
	if step != enums.CheckoutStepPayment || addr == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "complete the address step first")
	}
	token, user, identified := o.session.Current()
	if !identified {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "verify your phone number to continue")
	}
	lines := o.cart.Lines()
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	sub := submission{
		token:   token,
		user:    user,
		lines:   lines,
		address: *addr,
		quote:   o.Quote(),
	}
	res, err := handler(ctx, sub)
	if err != nil {
		o.setError(err)
		return nil, err
	}
	o.mu.Lock()
	o.lastErr = ""
	o.mu.Unlock()
	return res, nil
}

func (o *Orchestrator) Snapshot() Snapshot {
	quote := o.Quote()
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{
		Step:        o.step,
		Quote:       quote,
		Payment:     clonePending(o.pending),
		Unconfirmed: clonePending(o.unconfirmed),
		Error:       o.lastErr,
		Processing:  o.processing.Load(),
	}
	if o.address != nil {
		a := *o.address
		s.Address = &a
	}
	if o.completion != nil {
		c := *o.completion
		s.Completion = &c
	}
	return s
}

func (o *Orchestrator) buildOrder(sub submission, method enums.PaymentMethod) strapi.OrderCreate {
	order := strapi.OrderCreate{
		Items:           cart.ToRemote(sub.lines),
		ShippingAddress: sub.address.Shipping,
		BillingAddress:  sub.address.billing(),
		Subtotal:        sub.quote.Subtotal,
		Tax:             sub.quote.Tax,
		Shipping:        sub.quote.Shipping,
		Discount:        sub.quote.Discount,
		Total:           sub.quote.Total,
		PaymentMethod:   method,
		PaymentStatus:   enums.PaymentStatusPending,
		OrderStatus:     enums.OrderStatusPending,
		Notes:           sub.address.Notes,
		User:            sub.user.ID,
	}
	if sub.quote.Coupon != nil && sub.quote.Coupon.CouponID != 0 {
		id := sub.quote.Coupon.CouponID
		order.Coupon = &id
	}
	return order
}

// finish clears the cart and marks the checkout complete.
func (o *Orchestrator) finish(ctx context.Context, orderID int64, orderNumber string) *Completion {
	done := &Completion{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Redirect:    ConfirmationPath(orderID),
	}
	res, err := o.cart.Clear(ctx)
	if err != nil || res.Status == cart.StatusSyncWarning {
		done.CartWarning = true
		o.logError(ctx, "clear cart after order", firstErr(err, res.Warning))
	}
	o.recordPayment(ctx, nil, nil)

	o.mu.Lock()
	o.step = enums.CheckoutStepComplete
	o.completion = done
	o.coupon = nil
	o.lastErr = ""
	o.mu.Unlock()

	c := *done
	return &c
}

// ensureNoOpenPayment rejects edits while money may be moving. A pending order
// whose gateway checkout never opened is cancelled instead.
func (o *Orchestrator) ensureNoOpenPayment(ctx context.Context) error {
	if err := o.reload(ctx); err != nil {
		return err
	}
	o.mu.Lock()
	pending, unconfirmed := o.pending, o.unconfirmed
	o.mu.Unlock()

	if unconfirmed != nil {
		return pkgerrors.New(pkgerrors.CodePaymentUnconfirmed, msgUnconfirmed)
	}
	if pending == nil {
		return nil
	}
	if pending.Options != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order #%s is awaiting payment", pending.OrderNumber))
	}
	return o.releaseStalled(ctx, *pending)
}

func (o *Orchestrator) setError(err error) {
	msg := "something went wrong, please try again"
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		msg = typed.Message()
	}
	o.mu.Lock()
	o.lastErr = msg
	o.mu.Unlock()
}

func (o *Orchestrator) publish(ctx context.Context, event pubsub.OrderEvent) {
	if o.cfg.Events == nil {
		return
	}
	event.OccurredAt = o.cfg.Now().UTC()
	if err := o.cfg.Events.Publish(ctx, event); err != nil {
		o.logError(ctx, "publish order event", err)
	}
}

func (o *Orchestrator) logError(ctx context.Context, msg string, err error) {
	if o.cfg.Logger != nil && err != nil {
		o.cfg.Logger.Error(ctx, msg, err)
	}
}

// ConfirmationPath is where a placed order is shown.
func ConfirmationPath(orderID int64) string {
	return fmt.Sprintf("/orders/%d/confirmation", orderID)
}

func orderNumber(order *strapi.Order) string {
	if order.OrderNumber != "" {
		return order.OrderNumber
	}
	return fmt.Sprintf("%d", order.ID)
}

func clonePending(p *PendingPayment) *PendingPayment {
	if p == nil {
		return nil
	}
	c := *p
	if p.Options != nil {
		opts := *p.Options
		c.Options = &opts
	}
	return &c
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

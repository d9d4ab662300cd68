package visitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/internal/checkout"
	"github.com/angelmondragon/gheehive-storefront/internal/coupons"
	"github.com/angelmondragon/gheehive-storefront/internal/session"
	"github.com/angelmondragon/gheehive-storefront/pkg/config"
	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/razorpay"
	"github.com/angelmondragon/gheehive-storefront/pkg/storage"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
	"github.com/shopspring/decimal"
)

type nopBackend struct{}

func (nopBackend) SendOTP(context.Context, string) error { return nil }

func (nopBackend) VerifyOTP(context.Context, string, string) (*strapi.AuthResponse, error) {
	return &strapi.AuthResponse{}, nil
}

func (nopBackend) Me(context.Context, string) (*strapi.User, error) { return &strapi.User{}, nil }

func (nopBackend) UpdateUser(_ context.Context, _ string, id int64, _ strapi.UserUpdate) (*strapi.User, error) {
	return &strapi.User{ID: id}, nil
}

func (nopBackend) CreateOrder(context.Context, string, strapi.OrderCreate) (*strapi.Order, error) {
	return &strapi.Order{}, nil
}

func (nopBackend) UpdateOrder(context.Context, string, int64, strapi.OrderUpdate) (*strapi.Order, error) {
	return &strapi.Order{}, nil
}

func (nopBackend) GetOrder(context.Context, string, int64) (*strapi.Order, error) {
	return &strapi.Order{}, nil
}

// orderBackend keeps a single online order whose confirmation can be made to fail.
type orderBackend struct {
	nopBackend

	mu        sync.Mutex
	created   int
	updateErr error
	status    enums.PaymentStatus
}

func (b *orderBackend) CreateOrder(_ context.Context, _ string, order strapi.OrderCreate) (*strapi.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created++
	return &strapi.Order{
		ID:              int64(40 + b.created),
		OrderNumber:     "GH-2001",
		Total:           order.Total,
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusPending,
		RazorpayOrderID: "order_Rz9",
	}, nil
}

func (b *orderBackend) UpdateOrder(_ context.Context, _ string, id int64, _ strapi.OrderUpdate) (*strapi.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.updateErr != nil {
		return nil, b.updateErr
	}
	return &strapi.Order{ID: id}, nil
}

func (b *orderBackend) GetOrder(_ context.Context, _ string, id int64) (*strapi.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &strapi.Order{ID: id, PaymentStatus: b.status}, nil
}

type nopCoupons struct{}

func (nopCoupons) Apply(context.Context, string, string, decimal.Decimal) (*coupons.Discount, error) {
	return nil, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(t *testing.T, st storage.Store, clk *clock) *Registry {
	t.Helper()
	reg, err := NewRegistry(Params{
		Backend: nopBackend{},
		Coupons: nopCoupons{},
		Storage: st,
		IdleTTL: time.Minute,
		Logger:  logger.New(logger.Options{ServiceName: "visitor-test"}),
		Now:     clk.Now,
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

func TestNewRegistryRequiresDependencies(t *testing.T) {
	if _, err := NewRegistry(Params{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}

func TestGetReturnsSameWorkspace(t *testing.T) {
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	reg := newTestRegistry(t, storage.NewMemory(0), clk)

	first, err := reg.Get(context.Background(), "v-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := reg.Get(context.Background(), "v-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first != second {
		t.Fatal("expected the same workspace for one visitor")
	}
	other, err := reg.Get(context.Background(), "v-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if other == first || reg.Len() != 2 {
		t.Fatalf("expected two independent workspaces, have %d", reg.Len())
	}
}

func TestGetRejectsBlankVisitor(t *testing.T) {
	reg := newTestRegistry(t, storage.NewMemory(0), &clock{now: time.Now()})
	if _, err := reg.Get(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank visitor id")
	}
}

func TestEvictIdleKeepsPersistedState(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	mem := storage.NewMemory(0)
	reg := newTestRegistry(t, mem, clk)

	ws, err := reg.Get(ctx, "v-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	line := cart.Line{ProductID: 1, VariantID: 2, Quantity: 1, Price: decimal.NewFromInt(100), Title: "Ghee"}
	if _, err := ws.Cart.Add(ctx, line); err != nil {
		t.Fatalf("add: %v", err)
	}

	clk.advance(30 * time.Second)
	if n := reg.EvictIdle(ctx); n != 0 {
		t.Fatalf("expected nothing evicted before the idle ttl, got %d", n)
	}

	clk.advance(2 * time.Minute)
	if n := reg.EvictIdle(ctx); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, have %d", reg.Len())
	}

	restored, err := reg.Get(ctx, "v-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if restored == ws {
		t.Fatal("expected a fresh workspace after eviction")
	}
	if restored.Cart.TotalItems() != 1 {
		t.Fatalf("expected persisted cart to be restored, got %d items", restored.Cart.TotalItems())
	}
}

func TestEvictionKeepsUnconfirmedPaymentBlocked(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend := &orderBackend{}
	reg, err := NewRegistry(Params{
		Backend: backend,
		Coupons: nopCoupons{},
		Storage: storage.NewMemory(0),
		Gateway: razorpay.New(config.RazorpayConfig{KeyID: "rzp_key", KeySecret: "rzp_secret"}),
		IdleTTL: time.Minute,
		Logger:  logger.New(logger.Options{ServiceName: "visitor-test"}),
		Now:     clk.Now,
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	ws, err := reg.Get(ctx, "v-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := ws.Session.Set(ctx, "jwt", session.User{ID: 5, Phone: "9876543210"}); err != nil {
		t.Fatalf("set session: %v", err)
	}
	line := cart.Line{ProductID: 1, VariantID: 2, Price: decimal.NewFromInt(500), Title: "Ghee"}
	if _, err := ws.Cart.Add(ctx, line); err != nil {
		t.Fatalf("add: %v", err)
	}
	shipping := types.Address{FullName: "Meera Rao", Phone: "9876543210", Line1: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001"}
	if _, err := ws.Checkout.SubmitAddress(ctx, checkout.AddressInput{Shipping: shipping, SameAsShipping: true}); err != nil {
		t.Fatalf("address: %v", err)
	}
	if _, err := ws.Checkout.Submit(ctx, enums.PaymentMethodRazorpay); err != nil {
		t.Fatalf("submit: %v", err)
	}

	backend.updateErr = errors.New("connection reset")
	success := razorpay.Success{PaymentID: "pay_1", OrderID: "order_Rz9", Signature: razorpay.Sign("rzp_secret", "order_Rz9", "pay_1")}
	if _, err := ws.Checkout.PaymentSucceeded(ctx, success); pkgerrors.As(err).Code() != pkgerrors.CodePaymentUnconfirmed {
		t.Fatalf("expected unconfirmed payment, got %v", err)
	}
	backend.updateErr = nil

	clk.advance(2 * time.Minute)
	if n := reg.EvictIdle(ctx); n != 1 {
		t.Fatalf("expected one eviction, got %d", n)
	}

	restored, err := reg.Get(ctx, "v-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if restored.Checkout.Snapshot().Unconfirmed == nil {
		t.Fatal("expected the unconfirmed payment to be restored")
	}
	if _, err := restored.Checkout.Submit(ctx, enums.PaymentMethodCOD); pkgerrors.As(err).Code() != pkgerrors.CodePaymentUnconfirmed {
		t.Fatalf("submit must stay blocked after eviction, got %v", err)
	}
	if backend.created != 1 {
		t.Fatalf("expected a single order, got %d", backend.created)
	}

	backend.status = enums.PaymentStatusPaid
	res, err := restored.Checkout.ReconcilePayment(ctx)
	if err != nil || res.Completion == nil {
		t.Fatalf("reconcile after eviction: %+v %v", res, err)
	}
	if !restored.Cart.IsEmpty() {
		t.Fatal("reconciled checkout should clear the cart")
	}
}

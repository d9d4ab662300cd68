package visitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/internal/checkout"
	"github.com/angelmondragon/gheehive-storefront/internal/coupons"
	"github.com/angelmondragon/gheehive-storefront/pkg/config"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/metrics"
	"github.com/angelmondragon/gheehive-storefront/pkg/pubsub"
	"github.com/angelmondragon/gheehive-storefront/pkg/razorpay"
	"github.com/angelmondragon/gheehive-storefront/pkg/storage"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/shopspring/decimal"
)

const defaultIdleTTL = 30 * time.Minute

// Backend is the subset of the commerce backend a workspace talks to.
type Backend interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*strapi.AuthResponse, error)
	Me(ctx context.Context, token string) (*strapi.User, error)
	UpdateUser(ctx context.Context, token string, id int64, update strapi.UserUpdate) (*strapi.User, error)
	CreateOrder(ctx context.Context, token string, order strapi.OrderCreate) (*strapi.Order, error)
	UpdateOrder(ctx context.Context, token string, id int64, update strapi.OrderUpdate) (*strapi.Order, error)
	GetOrder(ctx context.Context, token string, id int64) (*strapi.Order, error)
}

type couponEvaluator interface {
	Apply(ctx context.Context, token, code string, subtotal decimal.Decimal) (*coupons.Discount, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event pubsub.OrderEvent) error
}

// Params bundles what every workspace is built from.
type Params struct {
	Backend  Backend
	Coupons  couponEvaluator
	Storage  storage.Store
	Locker   cart.Locker
	Pricing  checkout.Pricing
	Gateway  *razorpay.Gateway
	Events   eventPublisher
	Checkout config.CheckoutConfig
	IdleTTL  time.Duration
	Metrics  *metrics.Storefront
	Logger   *logger.Logger
	Now      func() time.Time
}

// Registry hands out one workspace per visitor id and drops idle ones.
type Registry struct {
	params Params
	remote cart.Remote

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewRegistry(params Params) (*Registry, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon evaluator required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.IdleTTL <= 0 {
		params.IdleTTL = defaultIdleTTL
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	remote, err := cart.NewUserRecordRemote(params.Backend)
	if err != nil {
		return nil, err
	}
	return &Registry{
		params:     params,
		remote:     remote,
		workspaces: map[string]*Workspace{},
	}, nil
}

// Get returns the visitor's workspace, restoring it from storage on first use.
func (r *Registry) Get(ctx context.Context, visitorID string) (*Workspace, error) {
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return nil, fmt.Errorf("visitor id required")
	}
	now := r.params.Now()

	r.mu.Lock()
	if ws, ok := r.workspaces[visitorID]; ok {
		ws.touch(now)
		r.mu.Unlock()
		return ws, nil
	}
	r.mu.Unlock()

	built, err := r.build(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	built.touch(now)

	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.workspaces[visitorID]; ok {
		ws.touch(now)
		return ws, nil
	}
	r.workspaces[visitorID] = built
	return built, nil
}

// EvictIdle drops workspaces unused for longer than the idle TTL. Persisted
// session, cart and open payment state survive and are reloaded on the next Get.
func (r *Registry) EvictIdle(ctx context.Context) int {
	cutoff := r.params.Now().Add(-r.params.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, ws := range r.workspaces {
		if !ws.LastSeen().Before(cutoff) || ws.busy() {
			continue
		}
		delete(r.workspaces, id)
		evicted++
	}
	if evicted > 0 {
		r.params.Logger.Debug(r.params.Logger.WithField(ctx, "evicted", evicted), "idle visitor workspaces evicted")
	}
	return evicted
}

// Len reports how many workspaces are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/gheehive-storefront/api/controllers"
	"github.com/angelmondragon/gheehive-storefront/api/middleware"
	"github.com/angelmondragon/gheehive-storefront/internal/coupons"
	"github.com/angelmondragon/gheehive-storefront/internal/visitor"
	"github.com/angelmondragon/gheehive-storefront/pkg/config"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/storage"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type stubBackend struct{}

func (stubBackend) SendOTP(context.Context, string) error { return nil }

func (stubBackend) VerifyOTP(context.Context, string, string) (*strapi.AuthResponse, error) {
	return &strapi.AuthResponse{}, nil
}

func (stubBackend) Me(context.Context, string) (*strapi.User, error) { return &strapi.User{}, nil }

func (stubBackend) UpdateUser(_ context.Context, _ string, id int64, _ strapi.UserUpdate) (*strapi.User, error) {
	return &strapi.User{ID: id}, nil
}

func (stubBackend) CreateOrder(context.Context, string, strapi.OrderCreate) (*strapi.Order, error) {
	return &strapi.Order{}, nil
}

func (stubBackend) UpdateOrder(context.Context, string, int64, strapi.OrderUpdate) (*strapi.Order, error) {
	return &strapi.Order{}, nil
}

func (stubBackend) GetOrder(context.Context, string, int64) (*strapi.Order, error) {
	return &strapi.Order{}, nil
}

type stubCoupons struct{}

func (stubCoupons) Apply(context.Context, string, string, decimal.Decimal) (*coupons.Discount, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		Visitor: config.VisitorConfig{
			Secret:   "router-test-secret",
			Issuer:   "gheehive",
			TokenTTL: time.Hour,
		},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Revalidate: config.RevalidateConfig{Secret: "publish-hook"},
	}
}

func newTestRouter(t *testing.T, readiness map[string]controllers.ReadinessCheck) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "router-test"})
	reg, err := visitor.NewRegistry(visitor.Params{
		Backend: stubBackend{},
		Coupons: stubCoupons{},
		Storage: storage.NewMemory(time.Hour),
		Logger:  logg,
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return NewRouter(Params{
		Config:     testConfig(),
		Logger:     logg,
		Gatherer:   prometheus.NewRegistry(),
		Readiness:  readiness,
		Workspaces: reg,
	})
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("X-GheeHive-Env"); got != "dev" {
		t.Fatalf("expected env header dev, got %q", got)
	}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	router := newTestRouter(t, map[string]controllers.ReadinessCheck{
		"backend": func(context.Context) error { return context.DeadlineExceeded },
	})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code < http.StatusInternalServerError {
		t.Fatalf("expected a 5xx status, got %d", resp.Code)
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	router := newTestRouter(t, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRevalidateRejectsWrongSecret(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/revalidate", nil)
	req.Header.Set(controllers.RevalidateSecretHeader, "nope")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Invalid secret") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestVisitorTokenKeepsCartAcrossRequests(t *testing.T) {
	router := newTestRouter(t, nil)

	add := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items",
		strings.NewReader(`{"productId":7,"variantId":2,"price":"450","title":"A2 Ghee 500ml"}`))
	add.Header.Set("Content-Type", "application/json")
	addResp := httptest.NewRecorder()
	router.ServeHTTP(addResp, add)
	if addResp.Code != http.StatusOK {
		t.Fatalf("add item: expected 200, got %d: %s", addResp.Code, addResp.Body.String())
	}
	token := addResp.Header().Get(middleware.VisitorTokenHeader)
	if token == "" {
		t.Fatalf("expected a minted visitor token")
	}

	get := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	get.Header.Set(middleware.VisitorTokenHeader, token)
	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, get)
	if getResp.Code != http.StatusOK {
		t.Fatalf("fetch cart: expected 200, got %d", getResp.Code)
	}

	var body struct {
		Data struct {
			TotalItems int `json:"totalItems"`
		} `json:"data"`
	}
	if err := json.Unmarshal(getResp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if body.Data.TotalItems != 1 {
		t.Fatalf("expected 1 item, got %d", body.Data.TotalItems)
	}
}

func TestAnonymousCartMutationsStartFreshVisitors(t *testing.T) {
	router := newTestRouter(t, nil)
	add := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":7,"variantId":2}`))
	router.ServeHTTP(httptest.NewRecorder(), add)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if !strings.Contains(resp.Body.String(), `"totalItems":0`) {
		t.Fatalf("expected an empty cart for a new visitor, got %s", resp.Body.String())
	}
}

func TestGateBeginRejectsUnknownIntent(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gate/begin", strings.NewReader(`{"intent":"teleport"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGateBeginAddToCartRequiresLine(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gate/begin", strings.NewReader(`{"intent":"add_to_cart"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestOrderDetailRequiresSignedInVisitor(t *testing.T) {
	router := newTestRouter(t, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders/12/cancel", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

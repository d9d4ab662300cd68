package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/gheehive-storefront/api/controllers"
	"github.com/angelmondragon/gheehive-storefront/api/middleware"
	"github.com/angelmondragon/gheehive-storefront/internal/auth"
	"github.com/angelmondragon/gheehive-storefront/internal/catalog"
	"github.com/angelmondragon/gheehive-storefront/internal/inquiries"
	"github.com/angelmondragon/gheehive-storefront/internal/orders"
	"github.com/angelmondragon/gheehive-storefront/pkg/config"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/metrics"
	pkgredis "github.com/angelmondragon/gheehive-storefront/pkg/redis"
)

// Params carries everything the HTTP surface is wired to. Redis, Gatherer and
// Metrics are optional; without Redis idempotency and rate limiting are off.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	Redis      *pkgredis.Client
	Gatherer   prometheus.Gatherer
	Metrics    *metrics.Storefront
	Readiness  map[string]controllers.ReadinessCheck
	Workspaces controllers.Workspaces
	Auth       auth.Service
	Catalog    *catalog.Service
	Orders     orders.Service
	Inquiries  *inquiries.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	reg := p.Workspaces

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.Metrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	otpPolicy := middleware.NewRateLimitPolicy(
		"otp",
		cfg.RateLimit.OTPWindow,
		cfg.RateLimit.OTPIPLimit,
		"phone",
		cfg.RateLimit.OTPPhoneLimit,
	)
	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		"",
		0,
	)
	limit := func(policy middleware.RateLimitPolicy) func(http.Handler) http.Handler {
		if p.Redis == nil {
			return passthrough
		}
		return middleware.RateLimit(policy, p.Redis, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.Readiness, logg))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/api/revalidate", controllers.Revalidate(cfg.Revalidate.Secret, p.Catalog, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Visitor(cfg.Visitor, logg))
		if p.Redis != nil {
			r.Use(middleware.Idempotency(p.Redis, logg))
		}

		r.Get("/products", controllers.ProductList(p.Catalog, logg))
		r.Get("/products/{id}", controllers.ProductDetail(p.Catalog, logg))
		r.Post("/inquiries", controllers.InquiryCreate(p.Inquiries, logg))

		r.Get("/session", controllers.SessionFetch(reg, logg))
		r.Route("/auth", func(r chi.Router) {
			r.With(limit(loginPolicy)).Post("/login", controllers.AuthLogin(reg, p.Auth, logg))
			r.With(limit(loginPolicy)).Post("/register", controllers.AuthRegister(reg, p.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(reg, p.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(reg, p.Auth, logg))
		})
		r.Put("/profile", controllers.ProfileUpdate(reg, p.Auth, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(reg, logg))
			r.Delete("/", controllers.CartClear(reg, logg))
			r.Post("/items", controllers.CartAddItem(reg, logg))
			r.Patch("/items", controllers.CartUpdateItem(reg, logg))
			r.Delete("/items", controllers.CartRemoveItem(reg, logg))
			r.Post("/sync", controllers.CartSync(reg, logg))
		})

		r.Route("/gate", func(r chi.Router) {
			r.Get("/", controllers.GateFetch(reg, logg))
			r.Post("/begin", controllers.GateBegin(reg, logg))
			r.With(limit(otpPolicy)).Post("/phone", controllers.GatePhone(reg, logg))
			r.With(limit(otpPolicy)).Post("/resend", controllers.GateResend(reg, logg))
			r.Post("/code", controllers.GateCode(reg, logg))
			r.Post("/address", controllers.GateAddress(reg, logg))
			r.Post("/close", controllers.GateClose(reg, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutFetch(reg, logg))
			r.Post("/address", controllers.CheckoutAddress(reg, logg))
			r.Post("/back", controllers.CheckoutBack(reg, logg))
			r.Post("/coupon", controllers.CheckoutApplyCoupon(reg, logg))
			r.Delete("/coupon", controllers.CheckoutRemoveCoupon(reg, logg))
			r.Post("/submit", controllers.CheckoutSubmit(reg, logg))
			r.Post("/retry", controllers.CheckoutRetry(reg, logg))
			r.Post("/reconcile", controllers.CheckoutReconcile(reg, logg))
			r.Post("/payment/success", controllers.PaymentSuccess(reg, logg))
			r.Post("/payment/failure", controllers.PaymentFailure(reg, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{id}", controllers.OrderDetail(reg, p.Orders, logg))
			r.Post("/{id}/cancel", controllers.OrderCancel(reg, p.Orders, logg))
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler { return next }

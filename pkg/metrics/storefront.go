package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront records the business events of the storefront. A zero value (or nil) is a no-op.
type Storefront struct {
	cartSync   *prometheus.CounterVec
	checkout   *prometheus.CounterVec
	payments   *prometheus.CounterVec
	otp        *prometheus.CounterVec
	httpLat    *prometheus.HistogramVec
	catalogHit *prometheus.CounterVec
}

// NewStorefront registers the storefront metrics on the provided registerer.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	s := &Storefront{
		cartSync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_sync_total",
			Help: "Cart reconciliations by outcome.",
		}, []string{"result"}),
		checkout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkout_submissions_total",
			Help: "Checkout submissions by payment method and outcome.",
		}, []string{"method", "result"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_payment_callbacks_total",
			Help: "Gateway callbacks by outcome.",
		}, []string{"outcome"}),
		otp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_otp_events_total",
			Help: "OTP sends and verifications by kind.",
		}, []string{"kind"}),
		httpLat: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Latency of storefront API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		catalogHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_catalog_cache_total",
			Help: "Catalog cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(s.cartSync, s.checkout, s.payments, s.otp, s.httpLat, s.catalogHit)
	return s
}

// CartSync counts a reconciliation outcome: ok, warning, skipped or error.
func (s *Storefront) CartSync(result string) {
	if s == nil || s.cartSync == nil {
		return
	}
	s.cartSync.WithLabelValues(normalizeLabel(result)).Inc()
}

// CheckoutSubmitted counts a submit attempt for the payment method.
func (s *Storefront) CheckoutSubmitted(method, result string) {
	if s == nil || s.checkout == nil {
		return
	}
	s.checkout.WithLabelValues(normalizeLabel(method), normalizeLabel(result)).Inc()
}

// PaymentCallback counts a gateway callback outcome.
func (s *Storefront) PaymentCallback(outcome string) {
	if s == nil || s.payments == nil {
		return
	}
	s.payments.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// OTP counts an OTP event.
func (s *Storefront) OTP(kind string) {
	if s == nil || s.otp == nil {
		return
	}
	s.otp.WithLabelValues(normalizeLabel(kind)).Inc()
}

// CatalogCache counts a cache hit or miss.
func (s *Storefront) CatalogCache(hit bool) {
	if s == nil || s.catalogHit == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	s.catalogHit.WithLabelValues(result).Inc()
}

// ObserveHTTP records a request's latency under its route pattern.
func (s *Storefront) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if s == nil || s.httpLat == nil {
		return
	}
	s.httpLat.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStorefrontExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefront(reg)
	m.CartSync("ok")
	m.CartSync("ok")
	m.CheckoutSubmitted("COD", "ok")
	m.PaymentCallback("unconfirmed")
	m.ObserveHTTP("GET", "/api/v1/cart", 200, 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "storefront_cart_sync_total", "result", "ok"); err != nil {
		t.Fatalf("fetch cart sync: %v", err)
	} else if got != 2 {
		t.Fatalf("expected cart sync=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "storefront_payment_callbacks_total", "outcome", "unconfirmed"); err != nil {
		t.Fatalf("fetch payments: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unconfirmed=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "storefront_http_request_duration_seconds", "route", "/api/v1/cart"); err != nil {
		t.Fatalf("fetch latency: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected latency sum > 0, got %f", got)
	}
}

func TestNilStorefrontIsNoop(t *testing.T) {
	var m *Storefront
	m.CartSync("ok")
	m.OTP("send")
	m.CatalogCache(true)
	NewStorefront(nil).CheckoutSubmitted("COD", "error")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestMaintenanceCountsRunsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMaintenance(reg)
	m.ObserveRun("visitor-eviction", time.Millisecond, nil)
	m.ObserveRun("visitor-eviction", time.Millisecond, fmt.Errorf("boom"))
	m.ObserveRun("visitor-eviction", time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_job_runs_total", "result", "success"); err != nil {
		t.Fatalf("fetch runs: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 successful runs, got %f", got)
	}

	var nilMetrics *Maintenance
	nilMetrics.ObserveRun("noop", time.Second, nil)
}

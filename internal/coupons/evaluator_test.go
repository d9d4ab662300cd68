package coupons

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/shopspring/decimal"
)

type stubLookup struct {
	coupons []strapi.Coupon
	err     error
	calls   int
}

func (s *stubLookup) FindCoupons(_ context.Context, _ string, _ string) ([]strapi.Coupon, error) {
	s.calls++
	return s.coupons, s.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEvaluator(t *testing.T, coupons ...strapi.Coupon) (*Evaluator, *stubLookup) {
	t.Helper()
	stub := &stubLookup{coupons: coupons}
	ev, err := NewEvaluator(stub, func() time.Time { return fixedNow })
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	return ev, stub
}

func future() *time.Time {
	v := fixedNow.Add(48 * time.Hour)
	return &v
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestApplyPercentageCoupon(t *testing.T) {
	ev, _ := newEvaluator(t, strapi.Coupon{ID: 4, Code: "GHEE20", Value: dec("20"), Percentage: true, Expiry: future(), Count: 5})

	got, err := ev.Apply(context.Background(), "", "GHEE20", dec("1000"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !got.Amount.Equal(dec("200")) || got.CouponID != 4 {
		t.Fatalf("unexpected discount %+v", got)
	}
	if total := dec("1000").Sub(got.Amount); !total.Equal(dec("800")) {
		t.Fatalf("expected total 800, got %s", total)
	}
}

func TestApplyFlatCouponClampsToSubtotal(t *testing.T) {
	ev, _ := newEvaluator(t, strapi.Coupon{ID: 1, Code: "BIG", Value: dec("5000"), Count: 1})

	got, err := ev.Apply(context.Background(), "", "BIG", dec("800"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !got.Amount.Equal(dec("800")) {
		t.Fatalf("expected clamp to 800, got %s", got.Amount)
	}
	if dec("800").Sub(got.Amount).IsNegative() {
		t.Fatal("total must never be negative")
	}
}

func TestApplyRejections(t *testing.T) {
	past := fixedNow.Add(-time.Minute)
	cases := []struct {
		name    string
		code    string
		coupons []strapi.Coupon
		want    pkgerrors.Code
		message string
	}{
		{name: "empty", code: "  ", want: pkgerrors.CodeValidation, message: "coupon code is required"},
		{name: "unknown", code: "NOPE", want: pkgerrors.CodeNotFound, message: "invalid coupon"},
		{name: "case differs", code: "ghee20", coupons: []strapi.Coupon{{Code: "GHEE20", Count: 1}}, want: pkgerrors.CodeNotFound, message: "invalid coupon"},
		{name: "expired", code: "OLD", coupons: []strapi.Coupon{{Code: "OLD", Expiry: &past, Count: 9, Value: dec("10")}}, want: pkgerrors.CodeStateConflict, message: "coupon expired"},
		{name: "exhausted", code: "USED", coupons: []strapi.Coupon{{Code: "USED", Expiry: future(), Count: 0, Value: dec("90")}}, want: pkgerrors.CodeStateConflict, message: "coupon usage limit reached"},
		{name: "negative count", code: "NEG", coupons: []strapi.Coupon{{Code: "NEG", Count: -2}}, want: pkgerrors.CodeStateConflict, message: "coupon usage limit reached"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, _ := newEvaluator(t, tc.coupons...)
			_, err := ev.Apply(context.Background(), "", tc.code, dec("100"))
			typed := pkgerrors.As(err)
			if typed == nil {
				t.Fatalf("expected typed error, got %v", err)
			}
			if typed.Code() != tc.want || typed.Message() != tc.message {
				t.Fatalf("got %s %q", typed.Code(), typed.Message())
			}
		})
	}
}

func TestEmptyCodeNeverReachesBackend(t *testing.T) {
	ev, stub := newEvaluator(t)
	_, _ = ev.Apply(context.Background(), "", "", dec("10"))
	if stub.calls != 0 {
		t.Fatalf("expected no lookup, got %d", stub.calls)
	}
}

func TestApplyPropagatesLookupErrors(t *testing.T) {
	ev, stub := newEvaluator(t)
	stub.err = errors.New("boom")
	if _, err := ev.Apply(context.Background(), "", "X", dec("10")); err == nil {
		t.Fatal("expected lookup error")
	}
}

func TestExpiryBoundaryIsInclusive(t *testing.T) {
	at := fixedNow
	ev, _ := newEvaluator(t, strapi.Coupon{Code: "EDGE", Expiry: &at, Count: 1, Value: dec("10")})
	if _, err := ev.Apply(context.Background(), "", "EDGE", dec("100")); err != nil {
		t.Fatalf("coupon expiring now should apply: %v", err)
	}
}

func TestComputeStaysWithinBounds(t *testing.T) {
	values := []string{"0", "5", "20", "99.99", "100", "150", "5000", "-10"}
	subtotals := []string{"0", "0.01", "1", "799.50", "1000", "-5"}
	for _, v := range values {
		for _, pct := range []bool{true, false} {
			for _, s := range subtotals {
				subtotal := dec(s)
				got := Compute(dec(v), pct, subtotal)
				upper := decimal.Max(subtotal, decimal.Zero)
				if got.IsNegative() || got.GreaterThan(upper) {
					t.Fatalf("value=%s pct=%v subtotal=%s gave %s", v, pct, s, got)
				}
			}
		}
	}
	if got := Compute(dec("150"), true, dec("200")); !got.Equal(dec("200")) {
		t.Fatalf("150%% should clamp to subtotal, got %s", got)
	}
}

// Package coupons validates coupon codes and computes bounded discounts.
// Usage counts are decremented by the backend, never here.
package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type lookup interface {
	FindCoupons(ctx context.Context, token, code string) ([]strapi.Coupon, error)
}

// Discount is an applied coupon.
type Discount struct {
	CouponID   int64           `json:"couponId"`
	Code       string          `json:"code"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage bool            `json:"percentage"`
	Value      decimal.Decimal `json:"value"`
}

type Evaluator struct {
	coupons lookup
	now     func() time.Time
}

func NewEvaluator(coupons lookup, now func() time.Time) (*Evaluator, error) {
	if coupons == nil {
		return nil, fmt.Errorf("coupon lookup required")
	}
	if now == nil {
		now = time.Now
	}
	return &Evaluator{coupons: coupons, now: now}, nil
}

// Apply looks code up and computes its discount against subtotal.
func (e *Evaluator) Apply(ctx context.Context, token, code string, subtotal decimal.Decimal) (*Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required").
			WithDetails(map[string]string{"code": "required"})
	}

	found, err := e.coupons.FindCoupons(ctx, token, code)
	if err != nil {
		return nil, err
	}
	coupon, ok := exactMatch(found, code)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid coupon")
	}
	if coupon.Expiry != nil && e.now().After(*coupon.Expiry) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon expired")
	}
	if coupon.Count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "coupon usage limit reached")
	}

	return &Discount{
		CouponID:   coupon.ID,
		Code:       coupon.Code,
		Amount:     Compute(coupon.Value, coupon.Percentage, subtotal),
		Percentage: coupon.Percentage,
		Value:      coupon.Value,
	}, nil
}

// Compute returns the discount for value against subtotal, clamped to [0, subtotal].
func Compute(value decimal.Decimal, percentage bool, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	raw := value
	if percentage {
		raw = subtotal.Mul(value).Div(hundred)
	}
	if raw.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(raw, subtotal)
}

func exactMatch(coupons []strapi.Coupon, code string) (strapi.Coupon, bool) {
	for _, c := range coupons {
		if c.Code == code {
			return c, true
		}
	}
	return strapi.Coupon{}, false
}

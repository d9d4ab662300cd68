package checkout

import (
	"github.com/angelmondragon/gheehive-storefront/internal/coupons"
	"github.com/angelmondragon/gheehive-storefront/pkg/config"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Pricing holds the store-wide charges added on top of the cart subtotal.
type Pricing struct {
	TaxRatePercent        decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

func PricingFromConfig(cfg config.CheckoutConfig) (Pricing, error) {
	tax, shipping, free, err := cfg.Pricing()
	if err != nil {
		return Pricing{}, err
	}
	return Pricing{TaxRatePercent: tax, ShippingFee: shipping, FreeShippingThreshold: free}, nil
}

// Quote is the price breakdown of an order. No rounding happens here; amounts are
// rounded once when converted to gateway minor units.
type Quote struct {
	Subtotal decimal.Decimal   `json:"subtotal"`
	Tax      decimal.Decimal   `json:"tax"`
	Shipping decimal.Decimal   `json:"shipping"`
	Discount decimal.Decimal   `json:"discount"`
	Total    decimal.Decimal   `json:"total"`
	Coupon   *coupons.Discount `json:"coupon,omitempty"`
}

// Quote prices subtotal with an optional coupon. The coupon's amount is
// recomputed against subtotal so cart edits after applying it are honoured.
func (p Pricing) Quote(subtotal decimal.Decimal, coupon *coupons.Discount) Quote {
	q := Quote{Subtotal: subtotal, Discount: decimal.Zero}
	if coupon != nil {
		applied := *coupon
		applied.Amount = coupons.Compute(coupon.Value, coupon.Percentage, subtotal)
		q.Coupon = &applied
		q.Discount = applied.Amount
	}

	taxable := decimal.Max(subtotal.Sub(q.Discount), decimal.Zero)
	q.Tax = taxable.Mul(p.TaxRatePercent).Div(hundred)

	q.Shipping = p.ShippingFee
	if p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		q.Shipping = decimal.Zero
	}
	if subtotal.IsZero() {
		q.Shipping = decimal.Zero
	}

	q.Total = decimal.Max(subtotal.Add(q.Tax).Add(q.Shipping).Sub(q.Discount), decimal.Zero)
	return q
}

package strapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

type Coupon struct {
	ID         int64
	Code       string
	Expiry     *time.Time
	Count      int
	Value      decimal.Decimal
	Percentage bool
}

type couponAttributes struct {
	Code       string          `json:"Code"`
	Expiry     *string         `json:"Expiry"`
	Count      int             `json:"Count"`
	Value      decimal.Decimal `json:"Value"`
	Percentage bool            `json:"Percentage"`
}

// FindCoupons looks up coupons whose code equals code.
func (c *Client) FindCoupons(ctx context.Context, token, code string) ([]Coupon, error) {
	query := url.Values{"filters[Code][$eq]": []string{code}}
	var out collection[couponAttributes]
	if err := c.do(ctx, http.MethodGet, "/api/coupons", query, token, nil, &out); err != nil {
		return nil, err
	}
	coupons := make([]Coupon, 0, len(out.Data))
	for _, item := range out.Data {
		coupon := Coupon{
			ID:         item.ID,
			Code:       item.Attributes.Code,
			Count:      item.Attributes.Count,
			Value:      item.Attributes.Value,
			Percentage: item.Attributes.Percentage,
		}
		if item.Attributes.Expiry != nil {
			expiry, err := ParseExpiry(*item.Attributes.Expiry)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode coupon expiry")
			}
			coupon.Expiry = expiry
		}
		coupons = append(coupons, coupon)
	}
	return coupons, nil
}

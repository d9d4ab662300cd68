package strapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID                int64               `json:"id"`
	OrderNumber       string              `json:"orderNumber"`
	Items             []CartItem          `json:"items"`
	ShippingAddress   types.Address       `json:"shippingAddress"`
	BillingAddress    types.Address       `json:"billingAddress"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	Tax               decimal.Decimal     `json:"tax"`
	Shipping          decimal.Decimal     `json:"shipping"`
	Discount          decimal.Decimal     `json:"discount"`
	Total             decimal.Decimal     `json:"total"`
	PaymentMethod     enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus     enums.PaymentStatus `json:"paymentStatus"`
	OrderStatus       enums.OrderStatus   `json:"orderStatus"`
	Notes             string              `json:"notes,omitempty"`
	RazorpayOrderID   string              `json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string              `json:"razorpayPaymentId,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
}

type orderAttributes struct {
	OrderNumber       FlexString          `json:"orderNumber"`
	Items             []CartItem          `json:"items"`
	ShippingAddress   types.Address       `json:"shippingAddress"`
	BillingAddress    types.Address       `json:"billingAddress"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	Tax               decimal.Decimal     `json:"tax"`
	Shipping          decimal.Decimal     `json:"shipping"`
	Discount          decimal.Decimal     `json:"discount"`
	Total             decimal.Decimal     `json:"total"`
	PaymentMethod     enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus     enums.PaymentStatus `json:"paymentStatus"`
	OrderStatus       enums.OrderStatus   `json:"orderStatus"`
	Notes             string              `json:"notes"`
	RazorpayOrderID   string              `json:"razorpayOrderId"`
	RazorpayPaymentID string              `json:"razorpayPaymentId"`
	CreatedAt         time.Time           `json:"createdAt"`
}

func (a orderAttributes) toOrder(id int64) *Order {
	return &Order{
		ID:                id,
		OrderNumber:       a.OrderNumber.String(),
		Items:             a.Items,
		ShippingAddress:   a.ShippingAddress,
		BillingAddress:    a.BillingAddress,
		Subtotal:          a.Subtotal,
		Tax:               a.Tax,
		Shipping:          a.Shipping,
		Discount:          a.Discount,
		Total:             a.Total,
		PaymentMethod:     a.PaymentMethod,
		PaymentStatus:     a.PaymentStatus,
		OrderStatus:       a.OrderStatus,
		Notes:             a.Notes,
		RazorpayOrderID:   a.RazorpayOrderID,
		RazorpayPaymentID: a.RazorpayPaymentID,
		CreatedAt:         a.CreatedAt,
	}
}

// OrderCreate is the body of POST /api/orders.
type OrderCreate struct {
	Items           []CartItem          `json:"items"`
	ShippingAddress types.Address       `json:"shippingAddress"`
	BillingAddress  types.Address       `json:"billingAddress"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Tax             decimal.Decimal     `json:"tax"`
	Shipping        decimal.Decimal     `json:"shipping"`
	Discount        decimal.Decimal     `json:"discount"`
	Total           decimal.Decimal     `json:"total"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus   enums.PaymentStatus `json:"paymentStatus"`
	OrderStatus     enums.OrderStatus   `json:"orderStatus"`
	Notes           string              `json:"notes,omitempty"`
	User            int64               `json:"user"`
	Coupon          *int64              `json:"coupon,omitempty"`
}

// OrderUpdate carries payment confirmation or cancellation fields.
type OrderUpdate struct {
	PaymentStatus     *enums.PaymentStatus `json:"paymentStatus,omitempty"`
	OrderStatus       *enums.OrderStatus   `json:"orderStatus,omitempty"`
	RazorpayOrderID   string               `json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string               `json:"razorpayPaymentId,omitempty"`
	RazorpaySignature string               `json:"razorpaySignature,omitempty"`
}

func (c *Client) CreateOrder(ctx context.Context, token string, order OrderCreate) (*Order, error) {
	var out single[orderAttributes]
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, token, writeEnvelope{Data: order}, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend returned no order")
	}
	return out.Data.Attributes.toOrder(out.Data.ID), nil
}

func (c *Client) UpdateOrder(ctx context.Context, token string, id int64, update OrderUpdate) (*Order, error) {
	var out single[orderAttributes]
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/orders/%d", id), nil, token, writeEnvelope{Data: update}, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend returned no order")
	}
	return out.Data.Attributes.toOrder(out.Data.ID), nil
}

func (c *Client) GetOrder(ctx context.Context, token string, id int64) (*Order, error) {
	var out single[orderAttributes]
	query := url.Values{"populate": []string{"*"}}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/orders/%d", id), query, token, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return out.Data.Attributes.toOrder(out.Data.ID), nil
}

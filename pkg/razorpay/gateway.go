// Package razorpay builds hosted-checkout options and verifies gateway callbacks.
package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/angelmondragon/gheehive-storefront/pkg/config"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Gateway holds the merchant credentials and checkout branding.
type Gateway struct {
	keyID      string
	keySecret  string
	currency   string
	brandName  string
	themeColor string
}

// New returns nil when no credentials are configured, which callers treat as "gateway not loaded".
func New(cfg config.RazorpayConfig) *Gateway {
	if !cfg.Enabled() {
		return nil
	}
	currency := strings.TrimSpace(cfg.Currency)
	if currency == "" {
		currency = "INR"
	}
	return &Gateway{
		keyID:      strings.TrimSpace(cfg.KeyID),
		keySecret:  strings.TrimSpace(cfg.KeySecret),
		currency:   currency,
		brandName:  cfg.BrandName,
		themeColor: cfg.ThemeColor,
	}
}

// Configured reports whether both the public key and the signing secret are present.
func (g *Gateway) Configured() bool {
	return g != nil && g.keyID != "" && g.keySecret != ""
}

type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type Theme struct {
	Color string `json:"color,omitempty"`
}

// CheckoutOptions is handed to the hosted checkout widget as-is.
type CheckoutOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
	Theme       Theme             `json:"theme"`
}

type OptionsInput struct {
	GatewayOrderID string
	OrderNumber    string
	Total          decimal.Decimal
	Prefill        Prefill
	Notes          map[string]string
}

// Options builds the widget configuration. The total is converted to minor units here and nowhere else.
func (g *Gateway) Options(in OptionsInput) (CheckoutOptions, error) {
	if !g.Configured() {
		return CheckoutOptions{}, fmt.Errorf("payment gateway not configured")
	}
	if strings.TrimSpace(in.GatewayOrderID) == "" {
		return CheckoutOptions{}, fmt.Errorf("order has no payment intent id")
	}
	return CheckoutOptions{
		Key:         g.keyID,
		Amount:      ToMinorUnits(in.Total),
		Currency:    g.currency,
		Name:        g.brandName,
		Description: fmt.Sprintf("Order #%s", in.OrderNumber),
		OrderID:     in.GatewayOrderID,
		Prefill:     in.Prefill,
		Notes:       in.Notes,
		Theme:       Theme{Color: g.themeColor},
	}, nil
}

// ToMinorUnits multiplies by 100 and rounds half away from zero to an integer.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// VerifyPayment checks the signature the widget returns on success.
func (g *Gateway) VerifyPayment(p Success) bool {
	if !g.Configured() || p.Signature == "" {
		return false
	}
	expected := Sign(g.keySecret, p.OrderID, p.PaymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(p.Signature))))
}

// Sign computes hex(HMAC_SHA256(order_id|payment_id, secret)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

package strapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// entity is the v4 `{id, attributes}` record wrapper.
type entity[T any] struct {
	ID         int64 `json:"id"`
	Attributes T     `json:"attributes"`
}

type single[T any] struct {
	Data *entity[T] `json:"data"`
}

type collection[T any] struct {
	Data []entity[T] `json:"data"`
}

type writeEnvelope struct {
	Data any `json:"data"`
}

// FlexString accepts JSON strings, numbers and null. The backend stores phone
// numbers and pincodes as numbers on some records and strings on others.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || len(trimmed) == 0 {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// CartItem is one line of the cart snapshot embedded in the user record and in orders.
type CartItem struct {
	ProductID int64           `json:"productId"`
	VariantID int64           `json:"variantId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Weight    int             `json:"weight"`
	Title     string          `json:"title"`
	Image     *string         `json:"image,omitempty"`
}

// AuthResponse is returned by credential and OTP login.
type AuthResponse struct {
	JWT  string `json:"jwt"`
	User User   `json:"user"`
}

// User is the users-permissions record, returned flat (no attributes wrapper).
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Provider     string     `json:"provider,omitempty"`
	FullName     string     `json:"FullName,omitempty"`
	Phone        FlexString `json:"Phone,omitempty"`
	AddressLine1 string     `json:"AddressLine1,omitempty"`
	AddressLine2 string     `json:"AddressLine2,omitempty"`
	City         string     `json:"City,omitempty"`
	State        string     `json:"State,omitempty"`
	Pin          FlexString `json:"Pin,omitempty"`
	Landmark     string     `json:"Landmark,omitempty"`
	Cart         []CartItem `json:"cart,omitempty"`
}

// UserUpdate is a partial profile update. Nil fields are left untouched.
type UserUpdate struct {
	Username     *string     `json:"username,omitempty"`
	Email        *string     `json:"email,omitempty"`
	FullName     *string     `json:"FullName,omitempty"`
	Phone        *string     `json:"Phone,omitempty"`
	AddressLine1 *string     `json:"AddressLine1,omitempty"`
	AddressLine2 *string     `json:"AddressLine2,omitempty"`
	City         *string     `json:"City,omitempty"`
	State        *string     `json:"State,omitempty"`
	Pin          *string     `json:"Pin,omitempty"`
	Landmark     *string     `json:"Landmark,omitempty"`
	Cart         *[]CartItem `json:"cart,omitempty"`
}

var expiryLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// ParseExpiry reads a coupon expiry. Date-only values expire at the end of that day (UTC).
func ParseExpiry(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		parsed, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			parsed = parsed.Add(24*time.Hour - time.Nanosecond)
		}
		return &parsed, nil
	}
	return nil, fmt.Errorf("unrecognized expiry %q", raw)
}

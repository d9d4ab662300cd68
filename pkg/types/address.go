package types

import "strings"

// Address is a delivery or billing address. Validation rules live in internal/address.
type Address struct {
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone" validate:"required,in_mobile"`
	Line1    string `json:"addressLine1" validate:"required"`
	Line2    string `json:"addressLine2,omitempty"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	Pincode  string `json:"pincode" validate:"required,pincode"`
	Landmark string `json:"landmark,omitempty"`
}

// OnFile reports whether enough of the address is present to deliver to.
func (a Address) OnFile() bool {
	return strings.TrimSpace(a.Line1) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.Pincode) != ""
}

// Normalize trims surrounding whitespace from every field.
func (a Address) Normalize() Address {
	return Address{
		FullName: strings.TrimSpace(a.FullName),
		Phone:    strings.TrimSpace(a.Phone),
		Line1:    strings.TrimSpace(a.Line1),
		Line2:    strings.TrimSpace(a.Line2),
		City:     strings.TrimSpace(a.City),
		State:    strings.TrimSpace(a.State),
		Pincode:  strings.TrimSpace(a.Pincode),
		Landmark: strings.TrimSpace(a.Landmark),
	}
}

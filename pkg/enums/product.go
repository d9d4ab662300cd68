package enums

import (
	"fmt"
	"strings"
)

// ProductType is the catalog line a product belongs to.
type ProductType string

const (
	ProductTypeGhee  ProductType = "Ghee"
	ProductTypeHoney ProductType = "Honey"
)

var validProductTypes = []ProductType{
	ProductTypeGhee,
	ProductTypeHoney,
}

// String implements fmt.Stringer.
func (p ProductType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductType.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductType converts raw input into a ProductType. Matching ignores case.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}

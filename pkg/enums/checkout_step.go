package enums

import "fmt"

// CheckoutStep is the current page of the two-step checkout.
type CheckoutStep string

const (
	CheckoutStepAddress  CheckoutStep = "address"
	CheckoutStepPayment  CheckoutStep = "payment"
	CheckoutStepComplete CheckoutStep = "complete"
)

var validCheckoutSteps = []CheckoutStep{
	CheckoutStepAddress,
	CheckoutStepPayment,
	CheckoutStepComplete,
}

// String implements fmt.Stringer.
func (c CheckoutStep) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutStep.
func (c CheckoutStep) IsValid() bool {
	for _, candidate := range validCheckoutSteps {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutStep converts raw input into a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for _, candidate := range validCheckoutSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout step %q", value)
}

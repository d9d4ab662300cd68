package address

import (
	"reflect"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
)

func validAddress() types.Address {
	return types.Address{
		FullName: "Asha Rao",
		Phone:    "9876543210",
		Line1:    "12 MG Road",
		City:     "Bengaluru",
		State:    "Karnataka",
		Pincode:  "560001",
	}
}

func TestValidPhone(t *testing.T) {
	accepted := []string{"6000000000", "7123456789", "8999999999", "9876543210"}
	for _, phone := range accepted {
		if !ValidPhone(phone) {
			t.Fatalf("expected %q to be accepted", phone)
		}
	}
	rejected := []string{"", "5123456789", "0123456789", "987654321", "98765432100", "98765-4321", "+919876543210", "98765a3210"}
	for _, phone := range rejected {
		if ValidPhone(phone) {
			t.Fatalf("expected %q to be rejected", phone)
		}
	}
}

func TestValidPhoneExhaustiveLeadingDigit(t *testing.T) {
	for d := '0'; d <= '9'; d++ {
		phone := string(d) + "123456789"
		want := d >= '6'
		if got := ValidPhone(phone); got != want {
			t.Fatalf("leading digit %c: expected %v got %v", d, want, got)
		}
	}
}

func TestValidPincode(t *testing.T) {
	for _, pin := range []string{"000000", "560001", "999999"} {
		if !ValidPincode(pin) {
			t.Fatalf("expected %q to be accepted", pin)
		}
	}
	for _, pin := range []string{"", "56000", "5600011", "56O001", " 560001"} {
		if ValidPincode(pin) {
			t.Fatalf("expected %q to be rejected", pin)
		}
	}
}

func TestValidateAcceptsCompleteAddress(t *testing.T) {
	if err := Validate(validAddress()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReportsAllViolations(t *testing.T) {
	addr := validAddress()
	addr.Phone = "12345"
	addr.Pincode = "abc"
	addr.Line1 = "   "

	err := Validate(addr)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	want := []string{"addressLine1", "phone", "pincode"}
	if got := Fields(err); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected fields %v got %v", want, got)
	}
}

func TestValidatePairAggregatesShippingAndBilling(t *testing.T) {
	shipping := validAddress()
	shipping.City = ""
	billing := validAddress()
	billing.Phone = "4000000000"

	err := ValidatePair(shipping, &billing, false)
	want := []string{"billing.phone", "shipping.city"}
	if got := Fields(err); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected fields %v got %v", want, got)
	}
	details := pkgerrors.As(err).Details().(map[string]string)
	if !strings.Contains(details["billing.phone"], "6-9") {
		t.Fatalf("unexpected phone message %q", details["billing.phone"])
	}
}

func TestValidatePairSameAsShippingIgnoresBilling(t *testing.T) {
	billing := types.Address{}
	if err := ValidatePair(validAddress(), &billing, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePair(validAddress(), nil, false); err == nil {
		t.Fatal("expected missing billing to be rejected")
	}
}

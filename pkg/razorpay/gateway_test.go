package razorpay

import (
	"testing"

	"github.com/angelmondragon/gheehive-storefront/pkg/config"
	"github.com/shopspring/decimal"
)

func testGateway() *Gateway {
	return New(config.RazorpayConfig{
		KeyID:      "rzp_test_key",
		KeySecret:  "shh",
		Currency:   "INR",
		BrandName:  "GheeHive",
		ThemeColor: "#C8891D",
	})
}

func TestNewReturnsNilWithoutCredentials(t *testing.T) {
	if g := New(config.RazorpayConfig{Currency: "INR"}); g != nil {
		t.Fatal("expected nil gateway without credentials")
	}
	var g *Gateway
	if g.Configured() {
		t.Fatal("nil gateway must not report configured")
	}
}

func TestConfiguredNeedsBothKeys(t *testing.T) {
	g := New(config.RazorpayConfig{KeyID: "rzp_test_key"})
	if g == nil {
		t.Fatal("expected gateway when key id set")
	}
	if g.Configured() {
		t.Fatal("gateway without secret must not be configured")
	}
}

func TestToMinorUnitsRoundsOnce(t *testing.T) {
	cases := map[string]int64{
		"800":     80000,
		"0":       0,
		"499.995": 50000,
		"10.004":  1000,
		"10.005":  1001,
		"1049.5":  104950,
	}
	for in, want := range cases {
		if got := ToMinorUnits(decimal.RequireFromString(in)); got != want {
			t.Fatalf("%s: expected %d got %d", in, want, got)
		}
	}
}

func TestOptions(t *testing.T) {
	opts, err := testGateway().Options(OptionsInput{
		GatewayOrderID: "order_abc",
		OrderNumber:    "1042",
		Total:          decimal.RequireFromString("836.50"),
		Prefill:        Prefill{Name: "Asha", Contact: "9876543210"},
		Notes:          map[string]string{"orderId": "55"},
	})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Amount != 83650 || opts.Currency != "INR" || opts.Key != "rzp_test_key" {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.Description != "Order #1042" || opts.OrderID != "order_abc" || opts.Theme.Color != "#C8891D" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestOptionsRequiresIntent(t *testing.T) {
	if _, err := testGateway().Options(OptionsInput{OrderNumber: "1"}); err == nil {
		t.Fatal("expected error without gateway order id")
	}
}

func TestVerifyPayment(t *testing.T) {
	g := testGateway()
	sig := Sign("shh", "order_abc", "pay_123")
	if !g.VerifyPayment(Success{OrderID: "order_abc", PaymentID: "pay_123", Signature: sig}) {
		t.Fatal("expected valid signature")
	}
	if g.VerifyPayment(Success{OrderID: "order_abc", PaymentID: "pay_999", Signature: sig}) {
		t.Fatal("expected mismatch for different payment id")
	}
	if g.VerifyPayment(Success{OrderID: "order_abc", PaymentID: "pay_123"}) {
		t.Fatal("expected empty signature to fail")
	}
}

func TestFailureMessage(t *testing.T) {
	if got := (FailureDetail{Description: "Card declined by bank"}).Message(); got != "Card declined by bank" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (FailureDetail{Reason: "payment_cancelled"}).Message(); got != "payment_cancelled" {
		t.Fatalf("unexpected message %q", got)
	}
}

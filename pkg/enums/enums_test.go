package enums

import "testing"

func TestParsePaymentMethodIgnoresCase(t *testing.T) {
	got, err := ParsePaymentMethod(" razorpay ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != PaymentMethodRazorpay || !got.IsOnline() {
		t.Fatalf("expected online razorpay method, got %q", got)
	}
	if _, err := ParsePaymentMethod("upi"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestOrderStatusCancellable(t *testing.T) {
	cases := map[OrderStatus]bool{
		OrderStatusPending:    true,
		OrderStatusConfirmed:  true,
		OrderStatusProcessing: false,
		OrderStatusShipped:    false,
		OrderStatusDelivered:  false,
		OrderStatusCancelled:  false,
	}
	for status, want := range cases {
		if got := status.Cancellable(); got != want {
			t.Fatalf("%s: expected cancellable=%v got %v", status, want, got)
		}
	}
	if !OrderStatusDelivered.Terminal() || !OrderStatusCancelled.Terminal() || OrderStatusShipped.Terminal() {
		t.Fatal("unexpected terminal classification")
	}
}

func TestParseProductType(t *testing.T) {
	got, err := ParseProductType("honey")
	if err != nil || got != ProductTypeHoney {
		t.Fatalf("expected Honey, got %q err=%v", got, err)
	}
	if _, err := ParseProductType("butter"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestGateAndStepValidity(t *testing.T) {
	if !GateStateAwaitingAddress.IsValid() || GateState("LOST").IsValid() {
		t.Fatal("gate state validity mismatch")
	}
	if _, err := ParseCheckoutStep("payment"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseCheckoutStep("shipping"); err == nil {
		t.Fatal("expected error for unknown step")
	}
}

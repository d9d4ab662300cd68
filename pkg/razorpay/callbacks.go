package razorpay

// Success is the payload of the widget's success handler.
type Success struct {
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// Failure is the payload of the widget's payment.failed event.
type Failure struct {
	Error FailureDetail `json:"error"`
}

type FailureDetail struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Source      string          `json:"source,omitempty"`
	Step        string          `json:"step,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Metadata    FailureMetadata `json:"metadata"`
}

type FailureMetadata struct {
	OrderID   string `json:"order_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
}

// Message returns the text shown to the buyer, falling back when the gateway sent none.
func (f FailureDetail) Message() string {
	if f.Description != "" {
		return f.Description
	}
	if f.Reason != "" {
		return f.Reason
	}
	return "payment failed"
}

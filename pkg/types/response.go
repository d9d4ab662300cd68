package types

// SuccessEnvelope wraps every 2xx body except the bare revalidate reply.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is what the storefront shows or branches on. RequestID lets support
// find the matching log line.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

package strapi

import (
	"context"
	"net/http"
)

// Inquiry is a contact-form submission. Phone is stored as an integer by the backend.
type Inquiry struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   int64  `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// CreateInquiry posts the contact form. The backend collection is spelled "inquires".
func (c *Client) CreateInquiry(ctx context.Context, inquiry Inquiry) error {
	return c.do(ctx, http.MethodPost, "/api/inquires", nil, "", writeEnvelope{Data: inquiry}, nil)
}

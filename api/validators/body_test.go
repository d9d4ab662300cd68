package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
)

type phoneBody struct {
	Phone string `json:"phone" validate:"required,in_mobile"`
	Qty   int    `json:"qty" validate:"gt=0"`
}

func TestDecodeJSONBodyReportsFieldMessages(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"12345","qty":0}`))
	var body phoneBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["phone"] != "must be a 10-digit mobile number starting with 6-9" {
		t.Fatalf("unexpected phone message %q", details["phone"])
	}
	if details["qty"] != "must be greater than 0" {
		t.Fatalf("unexpected qty message %q", details["qty"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"9876543210","qty":1,"extra":true}`))
	var body phoneBody
	if err := DecodeJSONBody(req, &body); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestParsePathID(t *testing.T) {
	for raw, ok := range map[string]bool{"42": true, "0": false, "-1": false, "abc": false} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("id", raw)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

		_, err := ParsePathID(req, "id")
		if (err == nil) != ok {
			t.Fatalf("%q: expected ok=%v, got err=%v", raw, ok, err)
		}
	}
}

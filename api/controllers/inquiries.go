package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/gheehive-storefront/api/responses"
	"github.com/angelmondragon/gheehive-storefront/api/validators"
	"github.com/angelmondragon/gheehive-storefront/internal/inquiries"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
)

type inquirySubmitter interface {
	Submit(ctx context.Context, in inquiries.Input) error
}

func InquiryCreate(svc inquirySubmitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload inquiries.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Submit(r.Context(), payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]bool{"submitted": true})
	}
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/gheehive-storefront/api/responses"
	"github.com/angelmondragon/gheehive-storefront/api/validators"
	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/internal/identity"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
)

type gateBeginRequest struct {
	Intent string     `json:"intent" validate:"omitempty,oneof=none add_to_cart go_to_checkout"`
	Line   *cart.Line `json:"line,omitempty"`
}

type gatePhoneRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type gateCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type gateAddressRequest struct {
	Address types.Address `json:"address" validate:"-"`
}

func GateFetch(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, ws.Gate.Snapshot())
	}
}

// GateBegin starts verification for a deferred action.
func GateBegin(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload gateBeginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		intent, ok := identity.ParseIntent(payload.Intent, payload.Line)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "add_to_cart requires a line").
				WithDetails(map[string]string{"line": "is required"}))
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		writeGate(w, r, logg, func() (identity.Snapshot, error) {
			return ws.Gate.Begin(r.Context(), intent)
		})
	}
}

func GatePhone(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload gatePhoneRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		writeGate(w, r, logg, func() (identity.Snapshot, error) {
			return ws.Gate.SubmitPhone(r.Context(), payload.Phone)
		})
	}
}

func GateResend(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		writeGate(w, r, logg, func() (identity.Snapshot, error) {
			return ws.Gate.Resend(r.Context())
		})
	}
}

func GateCode(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload gateCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		writeGate(w, r, logg, func() (identity.Snapshot, error) {
			return ws.Gate.SubmitCode(r.Context(), payload.Code)
		})
	}
}

func GateAddress(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload gateAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		writeGate(w, r, logg, func() (identity.Snapshot, error) {
			return ws.Gate.SubmitAddress(r.Context(), payload.Address)
		})
	}
}

func GateClose(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, ws.Gate.Close())
	}
}

func writeGate(w http.ResponseWriter, r *http.Request, logg *logger.Logger, step func() (identity.Snapshot, error)) {
	snap, err := step()
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, snap)
}

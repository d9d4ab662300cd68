package controllers

import (
	"net/http"

	"github.com/angelmondragon/gheehive-storefront/api/responses"
	"github.com/angelmondragon/gheehive-storefront/api/validators"
	"github.com/angelmondragon/gheehive-storefront/internal/auth"
	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/internal/session"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
)

type sessionResponse struct {
	Session session.Snapshot `json:"session"`
	Cart    cart.Snapshot    `json:"cart"`
}

type authResponse struct {
	Session session.Snapshot `json:"session"`
	Cart    cart.Snapshot    `json:"cart"`
	Sync    *syncResponse    `json:"sync,omitempty"`
}

// SessionFetch returns who the visitor is and what is in their cart.
func SessionFetch(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, sessionResponse{Session: ws.Session.Snapshot(), Cart: ws.Cart.Snapshot()})
	}
}

func AuthLogin(reg Workspaces, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		out, err := svc.Login(r.Context(), ws.Session, ws.Cart, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAuthResponse(out, ws.Cart.Snapshot()))
	}
}

func AuthRegister(reg Workspaces, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		out, err := svc.Register(r.Context(), ws.Session, ws.Cart, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newAuthResponse(out, ws.Cart.Snapshot()))
	}
}

func AuthLogout(reg Workspaces, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		if err := svc.Logout(r.Context(), ws.Session, ws.Cart); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws.Gate.Close()
		responses.WriteSuccess(w, sessionResponse{Session: ws.Session.Snapshot(), Cart: ws.Cart.Snapshot()})
	}
}

func AuthRefresh(reg Workspaces, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		out, err := svc.Refresh(r.Context(), ws.Session)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAuthResponse(out, ws.Cart.Snapshot()))
	}
}

func ProfileUpdate(reg Workspaces, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.ProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		out, err := svc.UpdateProfile(r.Context(), ws.Session, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAuthResponse(out, ws.Cart.Snapshot()))
	}
}

func newAuthResponse(out *auth.Outcome, c cart.Snapshot) authResponse {
	resp := authResponse{Session: out.Session, Cart: c}
	if out.Sync != nil {
		sync := newSyncResponse(*out.Sync)
		resp.Sync = &sync
	}
	return resp
}

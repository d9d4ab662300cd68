package controllers

import (
	"net/http"

	"github.com/angelmondragon/gheehive-storefront/api/responses"
	"github.com/angelmondragon/gheehive-storefront/api/validators"
	"github.com/angelmondragon/gheehive-storefront/internal/orders"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
)

func OrderDetail(reg Workspaces, svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		token, _, _ := ws.Session.Current()
		order, err := svc.Get(r.Context(), token, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderCancel cancels a pending or confirmed order and releases any open
// payment the checkout still holds for it.
func OrderCancel(reg Workspaces, svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		token, user, identified := ws.Session.Current()
		if !identified {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to manage orders"))
			return
		}
		order, err := svc.Cancel(r.Context(), token, user.ID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws.Checkout.CancelPending(r.Context(), id)
		responses.WriteSuccess(w, order)
	}
}

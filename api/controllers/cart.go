package controllers

import (
	"net/http"

	"github.com/angelmondragon/gheehive-storefront/api/responses"
	"github.com/angelmondragon/gheehive-storefront/api/validators"
	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
)

type cartItemKeyRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	VariantID int64 `json:"variantId" validate:"required,gt=0"`
}

type cartItemQuantityRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	VariantID int64 `json:"variantId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity"`
}

type cartMutationResponse struct {
	Cart    cart.Snapshot `json:"cart"`
	Status  string        `json:"status"`
	Warning string        `json:"warning,omitempty"`
}

type syncResponse struct {
	Status  string `json:"status"`
	Warning string `json:"warning,omitempty"`
	Skipped bool   `json:"skipped"`
	Pulled  int    `json:"pulled"`
	Pushed  bool   `json:"pushed"`
}

func CartFetch(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, ws.Cart.Snapshot())
	}
}

// CartAddItem adds one unit of a variant.
func CartAddItem(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cart.Line
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		res, err := ws.Cart.Add(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartMutationResponse(ws.Cart.Snapshot(), res))
	}
}

// CartUpdateItem sets a line's quantity; zero or less removes the line.
func CartUpdateItem(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartItemQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		res, err := ws.Cart.UpdateQuantity(r.Context(), payload.ProductID, payload.VariantID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartMutationResponse(ws.Cart.Snapshot(), res))
	}
}

func CartRemoveItem(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartItemKeyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		res, err := ws.Cart.Remove(r.Context(), payload.ProductID, payload.VariantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartMutationResponse(ws.Cart.Snapshot(), res))
	}
}

func CartClear(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		res, err := ws.Cart.Clear(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartMutationResponse(ws.Cart.Snapshot(), res))
	}
}

// CartSync reconciles the local cart with the signed-in user's saved cart.
func CartSync(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		res, err := ws.Cart.Sync(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"cart": ws.Cart.Snapshot(),
			"sync": newSyncResponse(res),
		})
	}
}

func newCartMutationResponse(snap cart.Snapshot, res cart.Result) cartMutationResponse {
	resp := cartMutationResponse{Cart: snap, Status: res.Status.String()}
	if res.Warning != nil {
		resp.Warning = "your cart was saved on this device but could not be synced to your account"
	}
	return resp
}

func newSyncResponse(res cart.SyncResult) syncResponse {
	resp := syncResponse{
		Status:  res.Status.String(),
		Skipped: res.Skipped,
		Pulled:  res.Pulled,
		Pushed:  res.Pushed,
	}
	if res.Warning != nil {
		resp.Warning = "your saved cart could not be synced"
	}
	return resp
}

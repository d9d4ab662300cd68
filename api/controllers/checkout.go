package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/gheehive-storefront/api/responses"
	"github.com/angelmondragon/gheehive-storefront/api/validators"
	"github.com/angelmondragon/gheehive-storefront/internal/checkout"
	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/razorpay"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
)

type checkoutAddressRequest struct {
	Shipping       types.Address  `json:"shipping" validate:"-"`
	Billing        *types.Address `json:"billing,omitempty" validate:"-"`
	SameAsShipping bool           `json:"sameAsShipping"`
	Notes          string         `json:"notes,omitempty" validate:"max=1000"`
}

type couponRequest struct {
	Code string `json:"code"`
}

type submitRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

type checkoutResultResponse struct {
	Result   *checkout.Result  `json:"result"`
	Checkout checkout.Snapshot `json:"checkout"`
}

func CheckoutFetch(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, ws.Checkout.Snapshot())
	}
}

func CheckoutAddress(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		snap, err := ws.Checkout.SubmitAddress(r.Context(), checkout.AddressInput{
			Shipping:       payload.Shipping,
			Billing:        payload.Billing,
			SameAsShipping: payload.SameAsShipping,
			Notes:          strings.TrimSpace(payload.Notes),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

func CheckoutBack(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		snap, err := ws.Checkout.Back(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

func CheckoutApplyCoupon(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload couponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		snap, err := ws.Checkout.ApplyCoupon(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

func CheckoutRemoveCoupon(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		snap, err := ws.Checkout.RemoveCoupon(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

// CheckoutSubmit places the order. Online payments answer with gateway options
// and complete through the payment callbacks.
func CheckoutSubmit(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload submitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		method := enums.PaymentMethod(strings.ToUpper(strings.TrimSpace(payload.PaymentMethod)))
		res, err := ws.Checkout.Submit(r.Context(), method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if res.Completion == nil {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, checkoutResultResponse{Result: res, Checkout: ws.Checkout.Snapshot()})
	}
}

func CheckoutRetry(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		res, err := ws.Checkout.RetryPayment(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutResultResponse{Result: res, Checkout: ws.Checkout.Snapshot()})
	}
}

// CheckoutReconcile re-reads an order whose payment confirmation failed.
func CheckoutReconcile(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		res, err := ws.Checkout.ReconcilePayment(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutResultResponse{Result: res, Checkout: ws.Checkout.Snapshot()})
	}
}

func PaymentSuccess(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload razorpay.Success
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		res, err := ws.Checkout.PaymentSucceeded(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutResultResponse{Result: res, Checkout: ws.Checkout.Snapshot()})
	}
}

func PaymentFailure(reg Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload razorpay.Failure
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ws, ok := resolveWorkspace(w, r, reg, logg)
		if !ok {
			return
		}
		responses.WriteError(r.Context(), logg, w, ws.Checkout.PaymentFailed(r.Context(), payload))
	}
}

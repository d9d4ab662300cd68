package controllers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/angelmondragon/gheehive-storefront/api/responses"
	"github.com/angelmondragon/gheehive-storefront/api/validators"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
)

// RevalidateSecretHeader carries the shared secret of the CMS publish hook.
const RevalidateSecretHeader = "X-Revalidate-Secret"

type catalogReader interface {
	List(ctx context.Context, productType string) ([]strapi.Product, error)
	Get(ctx context.Context, id int64) (*strapi.Product, error)
}

type catalogRevalidator interface {
	Revalidate(ctx context.Context) (int64, error)
}

// ProductList returns the catalog, optionally narrowed by ?type=Ghee|Honey.
func ProductList(svc catalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.List(r.Context(), r.URL.Query().Get("type"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func ProductDetail(svc catalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// Revalidate drops cached catalog reads when the shared secret matches.
func Revalidate(secret string, svc catalogRevalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		given := strings.TrimSpace(r.Header.Get(RevalidateSecretHeader))
		if secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
			responses.WriteJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid secret"})
			return
		}
		generation, err := svc.Revalidate(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revalidate catalog"))
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "generation", generation), "catalog.revalidated")
		}
		responses.WriteJSON(w, http.StatusOK, map[string]bool{"revalidated": true})
	}
}

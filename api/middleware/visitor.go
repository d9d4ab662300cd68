package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/gheehive-storefront/api/responses"
	pkgauth "github.com/angelmondragon/gheehive-storefront/pkg/auth"
	"github.com/angelmondragon/gheehive-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
)

// VisitorTokenHeader carries the signed visitor token in both directions.
const VisitorTokenHeader = "X-Visitor-Token"

// Visitor resolves the caller's visitor id from the signed token, minting a new
// visitor when the token is absent or no longer valid. The token in effect is
// echoed on every response.
func Visitor(cfg config.VisitorConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := strings.TrimSpace(r.Header.Get(VisitorTokenHeader))

			var visitorID string
			if token != "" {
				claims, err := pkgauth.ParseVisitorToken(cfg, token)
				if err == nil {
					visitorID = claims.VisitorID
				} else if logg != nil {
					logg.Warn(logg.WithField(ctx, "reason", err.Error()), "visitor.token.rejected")
				}
			}

			if visitorID == "" {
				visitorID = pkgauth.NewVisitorID()
				minted, err := pkgauth.MintVisitorToken(cfg, time.Now(), visitorID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint visitor token"))
					return
				}
				token = minted
			}

			w.Header().Set(VisitorTokenHeader, token)
			ctx = WithVisitorID(ctx, visitorID)
			if logg != nil {
				ctx = logg.WithVisitorID(ctx, visitorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

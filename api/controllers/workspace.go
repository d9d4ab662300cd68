package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/gheehive-storefront/api/middleware"
	"github.com/angelmondragon/gheehive-storefront/api/responses"
	"github.com/angelmondragon/gheehive-storefront/internal/visitor"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
)

// Workspaces resolves the live state of a visitor.
type Workspaces interface {
	Get(ctx context.Context, visitorID string) (*visitor.Workspace, error)
}

// resolveWorkspace writes the error response itself and reports false when no
// workspace is available.
func resolveWorkspace(w http.ResponseWriter, r *http.Request, reg Workspaces, logg *logger.Logger) (*visitor.Workspace, bool) {
	if reg == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "visitor registry unavailable"))
		return nil, false
	}
	visitorID := middleware.VisitorIDFromContext(r.Context())
	if visitorID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "visitor token required"))
		return nil, false
	}
	ws, err := reg.Get(r.Context(), visitorID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load visitor state"))
		return nil, false
	}
	return ws, true
}

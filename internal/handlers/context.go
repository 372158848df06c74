package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/steward/internal/models"
)

type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal stores an authenticated principal on the request context
func ContextWithPrincipal(ctx context.Context, principal *models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext returns the authenticated principal, or nil when
// the request carried no valid credentials.
func PrincipalFromContext(ctx context.Context) *models.Principal {
	principal, _ := ctx.Value(principalContextKey).(*models.Principal)
	return principal
}

// RequirePrincipal returns the authenticated principal, writing a 401
// response and returning nil when there is none.
func RequirePrincipal(w http.ResponseWriter, r *http.Request) *models.Principal {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return nil
	}
	return principal
}

// RequireAdmin returns the authenticated principal when it has the admin
// role, writing a 401/403 response and returning nil otherwise.
func RequireAdmin(w http.ResponseWriter, r *http.Request) *models.Principal {
	principal := RequirePrincipal(w, r)
	if principal == nil {
		return nil
	}
	if !principal.IsAdmin() {
		WriteError(w, http.StatusForbidden, "Admin role required")
		return nil
	}
	return principal
}

package middleware

import (
	"net/http"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/response"
)

// RequireRole authenticates the caller and then checks the role claim.
func RequireRole(verifier AccessVerifier, role domain.Role) func(http.Handler) http.Handler {
	auth := RequireAuth(verifier)
	return func(next http.Handler) http.Handler {
		return auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing auth context", nil)
				return
			}
			if claims.Role != role {
				response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "insufficient role", map[string]string{"required": role.String()})
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func RequireAdmin(verifier AccessVerifier) func(http.Handler) http.Handler {
	return RequireRole(verifier, domain.RoleAdmin)
}

func RequirePolitician(verifier AccessVerifier) func(http.Handler) http.Handler {
	return RequireRole(verifier, domain.RolePolitician)
}

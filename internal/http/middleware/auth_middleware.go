package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/KabriAcid/ScrynCard-sub001/internal/http/response"
	"github.com/KabriAcid/ScrynCard-sub001/internal/observability"
	"github.com/KabriAcid/ScrynCard-sub001/internal/security"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

type AccessVerifier interface {
	VerifyAccess(raw string) (*security.AccessClaims, error)
}

// TokenFromRequest returns the access token from the access_token cookie,
// falling back to an Authorization bearer header.
func TokenFromRequest(r *http.Request) (raw, source string) {
	if raw = security.GetCookie(r, security.AccessCookieName); raw != "" {
		return raw, "cookie"
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		if raw = strings.TrimSpace(auth[7:]); raw != "" {
			return raw, "bearer"
		}
	}
	return "", "none"
}

// GetCurrentUser verifies the caller's access token by signature alone. A
// revoked session keeps passing here until its access token expires, so the
// access TTL bounds how long a revocation takes to reach ordinary requests.
func GetCurrentUser(r *http.Request, verifier AccessVerifier) (*security.AccessClaims, bool) {
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		return claims, true
	}
	raw, source := TokenFromRequest(r)
	if raw == "" {
		observability.RecordAccessTokenValidation(r.Context(), "missing", source)
		return nil, false
	}
	claims, err := verifier.VerifyAccess(raw)
	if err != nil {
		observability.RecordAccessTokenValidation(r.Context(), "invalid", source)
		return nil, false
	}
	observability.RecordAccessTokenValidation(r.Context(), "valid", source)
	return claims, true
}

func RequireAuth(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetCurrentUser(r, verifier)
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required", nil)
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.AccessClaims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.AccessClaims)
	return c, ok && c != nil
}

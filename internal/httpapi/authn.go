package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"bondaccess.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAdminAuth gates privileged endpoints behind an admin bearer token.
// With no secret configured the endpoint is disabled rather than open.
func (a *API) withAdminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !auth.Enabled() {
			writeFailure(w, r, http.StatusServiceUnavailable, "admin authentication is not configured")
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeFailure(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			writeFailure(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		if !claims.HasRole(auth.RoleAdmin) {
			writeFailure(w, r, http.StatusForbidden, "admin role required")
			return
		}

		ctx := auth.ContextWithSubject(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

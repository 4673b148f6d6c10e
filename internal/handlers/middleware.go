package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/streamcatalog/backend/internal/auth"
	"github.com/streamcatalog/backend/internal/logging"
)

type contextKey string

const claimsContextKey contextKey = "authClaims"

// ClaimsFromContext returns the authenticated caller's claims, if any.
func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(auth.Claims)
	return claims, ok
}

// requireUser guards an endpoint with bearer token authentication. The
// access token's own expiry claim is enforced here; refresh expiry lives on
// the user row and is checked by the refresh flow instead.
func requireUser(tokens TokenService, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if tokens == nil {
			logging.FromContext(ctx).Error("token service unavailable")
			respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(ctx, w, http.StatusUnauthorized, "Please, sign in!")
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			respondError(ctx, w, http.StatusUnauthorized, "Invalid token or expired!")
			return
		}

		if claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now().UTC()) {
			respondError(ctx, w, http.StatusUnauthorized, "Invalid token or expired!")
			return
		}

		ctx = context.WithValue(ctx, claimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin additionally checks the role claim.
func requireAdmin(tokens TokenService, next http.HandlerFunc) http.HandlerFunc {
	return requireUser(tokens, func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claims, ok := ClaimsFromContext(ctx)
		if !ok || claims.Role != "Admin" {
			respondError(ctx, w, http.StatusForbidden, "Admin rights required")
			return
		}

		next(w, r)
	})
}

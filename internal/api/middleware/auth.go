// Package middleware holds the HTTP middleware of the catalog API.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"catalog-service/internal/auth"
)

type ctxKey int

const (
	claimsKey ctxKey = iota
	loggerKey
)

// Authorizer decides whether a bearer token grants access.
type Authorizer interface {
	RequireAuthenticated(token string) (auth.Claims, error)
	RequireAdmin(token string) (auth.Claims, error)
}

// ClaimsFrom returns the claims stored by RequireAuthenticated or
// RequireAdmin.
func ClaimsFrom(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(auth.Claims)
	return claims, ok
}

// BearerToken extracts the token from "Authorization: Bearer <token>". It
// returns "" when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func RequireAuthenticated(g Authorizer) func(http.Handler) http.Handler {
	return guard(g.RequireAuthenticated)
}

func RequireAdmin(g Authorizer) func(http.Handler) http.Handler {
	return guard(g.RequireAdmin)
}

func guard(check func(string) (auth.Claims, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := check(BearerToken(r))
			if err != nil {
				log := LoggerFrom(r.Context())
				switch {
				case errors.Is(err, auth.ErrForbidden):
					log.WithField("user_id", claims.UserID).Warn("administrator access denied")
					writeError(w, http.StatusForbidden, "forbidden", auth.ErrForbidden.Error())
				default:
					log.WithError(err).Debug("token rejected")
					w.Header().Set("WWW-Authenticate", `Bearer realm="catalog"`)
					writeError(w, http.StatusUnauthorized, "unauthenticated", auth.ErrUnauthenticated.Error())
				}
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, loggerKey, LoggerFrom(ctx).WithField("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Message: message})
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"notejournal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// LoginPath is advertised to unauthenticated clients.
const LoginPath = "/api/login"

// TokenParser is satisfied by *auth.Tokens.
type TokenParser interface {
	Parse(ctx context.Context, raw string, want auth.TokenType) (*auth.Claims, error)
}

// RequireAuth admits requests carrying a valid bearer access token and puts
// its claims in the context.
func RequireAuth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "authorization header missing")
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader || tokenStr == "" {
				logger.Debug().Msg("auth: bearer prefix missing")
				unauthorized(w, "invalid token format")
				return
			}

			claims, err := tokens.Parse(r.Context(), tokenStr, auth.AccessToken)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrRevokedToken) {
					logger.Error().Err(err).Msg("auth: token check failed")
				} else {
					logger.Debug().Err(err).Msg("auth: token rejected")
				}
				unauthorized(w, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom returns the claims RequireAuth stored, if any.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// UserID returns the authenticated user's id.
func UserID(ctx context.Context) (int64, bool) {
	claims, ok := ClaimsFrom(ctx)
	if !ok {
		return 0, false
	}
	return claims.UserID, true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="notejournal"`)
	w.Header().Set("Link", "<"+LoginPath+`>; rel="login"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "login": LoginPath})
}

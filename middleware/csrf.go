package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

const CSRFHeader = "X-CSRF-Token"

// RequireCSRF rejects state-changing requests whose X-CSRF-Token header does
// not match the csrf claim of the access token. Safe methods pass through.
// Must run after RequireAuth.
func RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := ClaimsFrom(r.Context())
		sent := r.Header.Get(CSRFHeader)
		if !ok || claims.CSRF == "" || sent == "" ||
			subtle.ConstantTimeCompare([]byte(sent), []byte(claims.CSRF)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "csrf token missing or invalid"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// tokenQueryParam carries the token for WebSocket clients that cannot set
// headers, such as browsers.
const tokenQueryParam = "token"

// requireToken wraps an http.Handler with Bearer token authentication.
// Failures are reported as a JSON-RPC 2.0 error body with HTTP 401.
// An empty secret rejects every request.
func requireToken(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !validToken(secret, r.Header.Get("Authorization")) &&
			!validQueryToken(secret, r.URL.Query().Get(tokenQueryParam)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"error": map[string]any{
					"code":    -32600,
					"message": "Unauthorized",
				},
				"id": nil,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validToken checks an Authorization header value against the secret using
// a constant-time comparison.
func validToken(secret, authHeader string) bool {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return false
	}
	return validQueryToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
}

func validQueryToken(secret, token string) bool {
	if secret == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

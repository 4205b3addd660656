// Package auth provides bearer-token authentication for the HTTP API.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireToken returns middleware that checks the Authorization header
// against the configured bearer token. Returns 401 Unauthorized when the
// header is missing or the token does not match.
func RequireToken(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := BearerToken(r)
			if presented == "" || !TokensEqual(presented, token) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the bearer token from the Authorization header.
// Returns "" when the header is absent or not a bearer credential.
// The Bearer scheme is matched case-insensitively per RFC 7235.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	fields := strings.Fields(authHeader)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(strings.Join(fields[1:], " "))
}

// TokensEqual compares two tokens in constant time.
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

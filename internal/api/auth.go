package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"log"
	"net/http"
	"strings"
)

// RequireToken returns middleware that rejects requests without
// "Authorization: Bearer <token>". An empty token disables the check.
func RequireToken(token string) func(http.Handler) http.Handler {
	if token == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	want := sha256.Sum256([]byte(token))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearerToken(r)
			if ok {
				sum := sha256.Sum256([]byte(got))
				ok = hmac.Equal(sum[:], want[:])
			}
			if !ok {
				log.Printf("🔐 Unauthorized %s %s from %s", r.Method, r.URL.Path, GetClientIP(r))
				RecordConnectionRejected("auth")
				w.Header().Set("WWW-Authenticate", `Bearer realm="forge"`)
				writeError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

package middleware

import (
	"context"
	"net/http"
)

// AccessSecretHeader carries the shared secret for the retrieval endpoint.
const AccessSecretHeader = "X-Access-Secret"

type ctxKey struct{}

// AccessSecret copies the X-Access-Secret header into the request context.
// Checking it is left to the service so the comparison stays constant-time.
func AccessSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxKey{}, r.Header.Get(AccessSecretHeader))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SecretFromContext returns the secret stored by AccessSecret, or "".
func SecretFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}

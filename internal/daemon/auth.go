package daemon

import (
	"net/http"
	"strings"
)

// TokenAuthMiddleware guards every /v1/ route with a bearer token. Paths
// outside /v1/ (the health probe) stay open so liveness checks work without
// credentials.
func TokenAuthMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/") {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeServiceError(w, unauthorizedError("unauthorized"))
			return
		}
		if strings.TrimSpace(strings.TrimPrefix(header, prefix)) != token {
			writeServiceError(w, unauthorizedError("unauthorized"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

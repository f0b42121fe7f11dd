package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mw := TokenAuthMiddleware("secret", next)

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "health-skips-auth", path: "/health", want: http.StatusNoContent},
		{name: "non-v1-skips-auth", path: "/metrics", want: http.StatusNoContent},
		{name: "missing-header", path: "/v1/sessions", want: http.StatusUnauthorized},
		{name: "wrong-token", path: "/v1/sessions", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "bare-token-no-scheme", path: "/v1/sessions", header: "secret", want: http.StatusUnauthorized},
		{name: "correct-token", path: "/v1/sessions", header: "Bearer secret", want: http.StatusNoContent},
		{name: "padded-token", path: "/v1/sessions", header: "Bearer  secret ", want: http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			mw.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if rec.Code != http.StatusUnauthorized {
				return
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("content type = %q", ct)
			}
			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Error != "unauthorized" {
				t.Fatalf("error = %q, want %q", resp.Error, "unauthorized")
			}
		})
	}
}

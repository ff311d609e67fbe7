package http

import (
	"net/http"
	"strings"
)

const (
	// The API serves JSON only, so the default policy allows nothing.
	cspDefault = "default-src 'none'"
	// Swagger UI renders with inline scripts and styles.
	cspSwagger = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"
)

// SecurityHeaders sets baseline security headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		csp := cspDefault
		if strings.HasPrefix(r.URL.Path, "/swagger/") {
			csp = cspSwagger
		}
		h.Set("Content-Security-Policy", csp)

		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

func setNoStore(h http.Header) {
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

// NoStore disables caching. Session views change on every answer.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setNoStore(w.Header())
		next.ServeHTTP(w, r)
	})
}

// CacheControl keeps API responses uncached and lets browsers hold static
// files, such as personality images, for staticMaxAge. A zero age disables
// caching everywhere.
func CacheControl(staticMaxAge time.Duration) func(http.Handler) http.Handler {
	public := fmt.Sprintf("public, max-age=%d", int(staticMaxAge.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			if staticMaxAge <= 0 || p == "/health" || p == "/" || p == "/index.html" || strings.HasPrefix(p, "/api/") {
				setNoStore(w.Header())
			} else {
				w.Header().Set("Cache-Control", public)
			}
			next.ServeHTTP(w, r)
		})
	}
}

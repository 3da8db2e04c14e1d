package handler

import (
	"fmt"
	"net/http"
)

// Cache lifetimes in seconds.
const (
	PublicMaxAge  = 60
	PublicSWR     = 300
	PrivateMaxAge = 30
	PrivateSWR    = 60
)

// Public marks responses as cacheable by CDNs and other shared caches.
func Public(sharedMaxAge, staleWhileRevalidate int) func(http.Handler) http.Handler {
	return cacheControl(fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", sharedMaxAge, staleWhileRevalidate))
}

// Private marks responses as cacheable by the browser only.
func Private(maxAge, staleWhileRevalidate int) func(http.Handler) http.Handler {
	return cacheControl(fmt.Sprintf("private, max-age=%d, stale-while-revalidate=%d", maxAge, staleWhileRevalidate))
}

// NoCache forbids caching, including by HTTP/1.0 intermediaries.
func NoCache() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
			next.ServeHTTP(w, r)
		})
	}
}

func cacheControl(value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}

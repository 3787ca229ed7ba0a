package middleware

import (
	"net/http"

	"github.com/alfycore/veko/internal/constants"
)

// RequestSizeLimitMiddleware rejects requests whose declared body
// exceeds maxRequestSize. Pages are fetched with bodyless GETs, so an
// oversized body is never traffic this server renders for; the
// rejection is an HTML error page like every other error response.
func RequestSizeLimitMiddleware(maxRequestSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxRequestSize > 0 && r.ContentLength > maxRequestSize {
				w.Header().Set("Content-Type", constants.ContentTypeHTML)
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write([]byte("<!DOCTYPE html><html><body><h1>" +
					http.StatusText(http.StatusRequestEntityTooLarge) + "</h1></body></html>"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

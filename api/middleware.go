package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// requireToken guards protected routes with a static bearer token. The
// verified-identity middleware of the surrounding deployment replaces this
// in production; an empty token disables the check.
func requireToken(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				auth := r.Header.Get("Authorization")
				if auth != "Bearer "+token {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

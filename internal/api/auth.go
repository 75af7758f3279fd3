package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// BearerAuthMiddleware requires "Authorization: Bearer <token>". An empty
// token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "", errors.New("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

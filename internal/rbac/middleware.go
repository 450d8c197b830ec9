package rbac

import (
	"net/http"
)

var defaultChecker = NewChecker(nil)

// Require rejects callers whose role lacks perm with 403.
func Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Allowed(r.Context(), perm) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","message":"Not authorized for this action"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

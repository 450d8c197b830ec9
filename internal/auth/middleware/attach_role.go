package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/examportal/internal/rbac"
)

// ErrUnknownUser is returned by a RoleLookup for subjects it does not know.
var ErrUnknownUser = errors.New("unknown user")

type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

type RoleLookupFunc func(ctx context.Context, userID string) (string, error)

func (f RoleLookupFunc) RoleOf(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// AttachRoleFromDB replaces the token's role claim with the stored role.
// A subject that no longer exists is rejected.
func AttachRoleFromDB(roles RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			role, err := roles.RoleOf(ctx, sub)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case err == nil || errors.Is(err, ErrUnknownUser):
				unauthorized(w, "Not authorized, user not found")
			default:
				log.Printf("attach role %s: %v", sub, err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal","message":"Server Error"}`))
			}
		})
	}
}

type subjectKey struct{}

func withSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns the user id from a verified token, or "".
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}

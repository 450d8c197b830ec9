package rbac

import (
	"context"
	"strings"
)

// Checker answers permission questions against a role policy.
type Checker struct {
	policy map[string][]string
}

// NewChecker uses RolePermissions when policy is nil.
func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	return &Checker{policy: policy}
}

// Has reports whether role grants perm. A granted "test:*" covers every
// test permission.
func (c *Checker) Has(role, perm string) bool {
	for _, g := range c.policy[role] {
		if g == perm || (strings.HasSuffix(g, ":*") && strings.HasPrefix(perm, strings.TrimSuffix(g, "*"))) {
			return true
		}
	}
	return false
}

// Allowed checks perm for the role carried by ctx under the default policy.
func Allowed(ctx context.Context, perm string) bool {
	role := RoleFromContext(ctx)
	return role != "" && defaultChecker.Has(role, perm)
}

type roleKey struct{}

// WithRole stores the caller's role as read from the user store.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}

package auth

import "context"

// Principal is the authenticated caller of a request.
type Principal struct {
	ID     string
	Name   string
	Role   Role
	Scopes []string
}

// IsAdmin reports whether the principal has the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached to ctx, or nil for anonymous
// requests.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

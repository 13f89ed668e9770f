package auth

import (
	"context"

	"quiz-play-service/internal/domain"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int64
	Role   domain.Role
}

func (p Principal) IsAdmin() bool { return p.Role == domain.RoleAdmin }

// CanActFor reports whether the principal may act on behalf of userID.
func (p Principal) CanActFor(userID int64) bool {
	return p.UserID == userID || p.IsAdmin()
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

package security

import (
	"context"
	"time"
	"todo_collab/internal/domain/model"
)

// Identity is the authenticated caller of one request. The zero value is
// unauthenticated.
type Identity struct {
	UserID    int64
	Role      model.Role
	TokenID   string
	ExpiresAt time.Time
}

func (i Identity) Authenticated() bool {
	return i.UserID != 0
}

func (i Identity) IsAdmin() bool {
	return i.Authenticated() && i.Role == model.RoleAdmin
}

type identityCtxKey struct{}

func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, ident)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityCtxKey{}).(Identity)
	return ident, ok && ident.Authenticated()
}

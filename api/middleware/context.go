package middleware

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/pkg/enums"
)

type (
	identityKey    struct{}
	cartSessionKey struct{}
)

// Identity is the authenticated caller as read from a verified access token.
type Identity struct {
	UserID uuid.UUID
	Roles  []enums.Role
	// AccessID is the token jti; signing out revokes the session under it.
	AccessID string
}

func (id Identity) Has(role enums.Role) bool {
	return slices.Contains(id.Roles, role)
}

func WithIdentity(ctx context.Context, userID uuid.UUID, roles []enums.Role, accessID string) context.Context {
	return context.WithValue(orBackground(ctx), identityKey{}, Identity{UserID: userID, Roles: roles, AccessID: accessID})
}

// IdentityFromContext returns the caller and whether Auth ran for this request.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

func UserIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}

func RolesFromContext(ctx context.Context) []enums.Role {
	id, _ := IdentityFromContext(ctx)
	return id.Roles
}

func HasRole(ctx context.Context, role enums.Role) bool {
	id, _ := IdentityFromContext(ctx)
	return id.Has(role)
}

func AccessIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.AccessID
}

func WithCartSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(orBackground(ctx), cartSessionKey{}, sessionID)
}

func CartSessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(cartSessionKey{}).(string)
	return s
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

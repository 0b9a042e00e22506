package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/pkg/enums"
)

// AccessTokenPayload is what the auth service knows when it mints a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Roles  []enums.Role
	JTI    string
}

// AccessTokenClaims is the body of a shop access token. Roles are a snapshot
// taken at mint time; refresh reloads them from user_roles.
type AccessTokenClaims struct {
	UserID uuid.UUID    `json:"user_id"`
	Email  string       `json:"email,omitempty"`
	Roles  []enums.Role `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token grants role.
func (c *AccessTokenClaims) HasRole(role enums.Role) bool {
	return c != nil && slices.Contains(c.Roles, role)
}

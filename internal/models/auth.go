package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload minted by the identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller manages the planning layer.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdminStaff
}

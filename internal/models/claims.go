package models

import "github.com/golang-jwt/jwt/v5"

// AdminClaims are the JWT claims carried by admin API tokens.
type AdminClaims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims grant admin access.
func (c *AdminClaims) IsAdmin() bool {
	return c.Role == "admin"
}

package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the access token payload. The role travels as a one-element
// roles list.
type Claims struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

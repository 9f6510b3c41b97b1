package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload. Tokens are issued by the
// corporate SSO; this service only validates them.
type JWTClaims struct {
	ActorID  string `json:"actor_id"`
	Role     Role   `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

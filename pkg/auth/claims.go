package auth

import "github.com/golang-jwt/jwt/v5"

// VisitorClaims is the payload of the signed visitor token. The subject is the
// opaque visitor id that namespaces persisted client state.
type VisitorClaims struct {
	VisitorID string `json:"vid"`
	jwt.RegisteredClaims
}

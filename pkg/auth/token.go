package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/gheehive-storefront/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// NewVisitorID returns a fresh opaque visitor identifier.
func NewVisitorID() string {
	return uuid.NewString()
}

// MintVisitorToken signs a token binding the caller to visitorID.
func MintVisitorToken(cfg config.VisitorConfig, now time.Time, visitorID string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("visitor secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("visitor issuer is required")
	}
	if cfg.TokenTTL <= 0 {
		return "", fmt.Errorf("visitor token ttl must be positive")
	}
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return "", fmt.Errorf("visitor id is required")
	}

	claims := VisitorClaims{
		VisitorID: visitorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   visitorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing visitor token: %w", err)
	}
	return signed, nil
}

// ParseVisitorToken validates the token string and returns typed claims.
func ParseVisitorToken(cfg config.VisitorConfig, tokenString string) (*VisitorClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("visitor secret is required")
	}

	claims := &VisitorClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.VisitorID) == "" {
		return nil, fmt.Errorf("visitor token missing visitor id")
	}
	return claims, nil
}

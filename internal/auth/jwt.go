package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

// Claims defines the structure of the session token claims.
type Claims struct {
	OwnerID string      `json:"owner_id,omitempty"`
	Role    models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the caller identity used by the billing service.
func (c *Claims) Actor() models.Actor {
	return models.Actor{Role: c.Role, OwnerID: c.OwnerID}
}

// GenerateJWT signs a token for the actor that expires after ttl.
func GenerateJWT(actor models.Actor, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	subject := actor.OwnerID
	if subject == "" {
		subject = string(actor.Role)
	}
	claims := &Claims{
		OwnerID: actor.OwnerID,
		Role:    actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT verifies a token string and returns its claims.
func ValidateJWT(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid JWT")
	}

	switch claims.Role {
	case models.RoleAdmin, models.RoleOwner:
	default:
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}

// Package security provides JWT token utilities
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const adminTokenType = "admin_auth"

var ErrInvalidToken = errors.New("invalid token")

// AdminClaims identifies an authenticated admin session.
type AdminClaims struct {
	Role string `json:"role"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs an HS256 admin token valid for ttl.
func IssueAdminToken(jwtSecret string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if jwtSecret == "" {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}
	expires := now.Add(ttl)
	claims := AdminClaims{
		Role: "admin",
		Type: adminTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        GenerateULID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, expires, nil
}

// ValidateAdminToken parses and verifies an admin token.
func ValidateAdminToken(tokenString, jwtSecret string) (*AdminClaims, error) {
	if tokenString == "" || jwtSecret == "" {
		return nil, ErrInvalidToken
	}
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Type != adminTokenType || claims.Role != "admin" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

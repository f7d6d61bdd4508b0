// internal/pkg/auth/jwt.go
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the claims of a development token.
// Subject carries the user id, mirroring the uid of a Firebase ID token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 tokens for local development,
// when no Firebase project is available.
type JWTManager struct {
	secret []byte
	issuer string
	expiry time.Duration
}

var _ TokenVerifier = (*JWTManager)(nil)

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret, issuer string, expiry time.Duration) *JWTManager {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
	}
}

// GenerateToken generates a signed token for uid
func (j *JWTManager) GenerateToken(uid, email string) (string, error) {
	if strings.TrimSpace(uid) == "" {
		return "", fmt.Errorf("uid is required")
	}

	now := time.Now().UTC()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Subject:   uid,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken validates and parses a token
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("token subject not specified")
	}

	return claims, nil
}

func (j *JWTManager) Verify(_ context.Context, token string) (Identity, error) {
	claims, err := j.ValidateToken(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Identity{UID: strings.TrimSpace(claims.Subject), Email: claims.Email}, nil
}

// internal/pkg/auth/verifier.go
package auth

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Identity is the authenticated caller
type Identity struct {
	UID   string
	Email string
}

// TokenVerifier turns a bearer token into an Identity
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// ExtractTokenFromHeader extracts the bearer token from an Authorization header
func ExtractTokenFromHeader(authHeader string) string {
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, "hoodskool", time.Hour)

	token, err := m.GenerateToken("uid-42", "shopper@hoodskool.com")
	require.NoError(t, err)

	identity, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UID: "uid-42", Email: "shopper@hoodskool.com"}, identity)
}

func TestJWTManager_RejectsOtherSecret(t *testing.T) {
	token, err := NewJWTManager("another-secret-another-secret-xx", "hoodskool", time.Hour).GenerateToken("uid-1", "")
	require.NoError(t, err)

	_, err = NewJWTManager(testSecret, "hoodskool", time.Hour).Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsOtherIssuer(t *testing.T) {
	token, err := NewJWTManager(testSecret, "someone-else", time.Hour).GenerateToken("uid-1", "")
	require.NoError(t, err)

	_, err = NewJWTManager(testSecret, "hoodskool", time.Hour).Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "uid-1",
		Issuer:    "hoodskool",
		IssuedAt:  jwt.NewNumericDate(past),
		ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewJWTManager(testSecret, "hoodskool", time.Hour).Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RequiresSubject(t *testing.T) {
	_, err := NewJWTManager(testSecret, "hoodskool", time.Hour).GenerateToken(" ", "")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc "))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader("Bearer"))
}

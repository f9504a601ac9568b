package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	service := NewJWTService("test-secret", 15*time.Minute)

	tokenString, expiresAt, err := service.GenerateAccessToken("user-1", "Aki", "student")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenString)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 2*time.Second)

	claims, err := service.ValidateAccessToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "Aki", claims.Name)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	service := NewJWTService("test-secret", -time.Minute)

	tokenString, _, err := service.GenerateAccessToken("user-1", "Aki", "student")
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(tokenString)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_ValidateAccessToken_WrongSecret(t *testing.T) {
	service := NewJWTService("test-secret", 15*time.Minute)
	other := NewJWTService("other-secret", 15*time.Minute)

	tokenString, _, err := service.GenerateAccessToken("user-1", "Aki", "student")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(tokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateAccessToken_Garbage(t *testing.T) {
	service := NewJWTService("test-secret", 15*time.Minute)

	_, err := service.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

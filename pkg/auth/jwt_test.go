package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute, time.Hour)

	token, err := m.GenerateAccessToken("kim@x.com", "Kim", RoleIssuer)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "kim@x.com", claims.Email)
	assert.Equal(t, "kim@x.com", claims.Subject)
	assert.Equal(t, "Kim", claims.Name)
	assert.Equal(t, RoleIssuer, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTManager_RejectsForeignSecret(t *testing.T) {
	token, err := NewJWTManager("one", time.Minute, time.Hour).GenerateAccessToken("a@b.co", "A", RoleIssuer)
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Minute, time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute, time.Hour)
	token, err := m.GenerateAccessToken("a@b.co", "A", RoleIssuer)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

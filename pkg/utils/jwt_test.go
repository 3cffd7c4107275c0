package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManagerRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "adjacent")

	token, err := m.GenerateToken("user-1", "dana@example.com", time.Minute)
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "dana@example.com", claims.Email)
}

func TestJWTManagerRejects(t *testing.T) {
	m := NewJWTManager("secret", "adjacent")

	expired, err := m.GenerateToken("user-1", "", -time.Minute)
	require.NoError(t, err)
	_, err = m.ParseToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other, err := NewJWTManager("other", "adjacent").GenerateToken("user-1", "", time.Minute)
	require.NoError(t, err)
	_, err = m.ParseToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTManager("secret", "someone-else").GenerateToken("user-1", "", time.Minute)
	require.NoError(t, err)
	_, err = m.ParseToken(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

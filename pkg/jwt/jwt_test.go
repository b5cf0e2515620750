package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v, err := NewVerifier("s3cret", "auth-service")
	require.NoError(t, err)

	token, err := v.Sign("u1", "alice", []string{"user", "admin"}, time.Minute)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []string{"user", "admin"}, claims.Roles)
}

func TestVerifier_Rejects(t *testing.T) {
	v, err := NewVerifier("s3cret", "auth-service")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		token, err := v.Sign("u1", "alice", nil, -time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewVerifier("other", "auth-service")
		require.NoError(t, err)
		token, err := other.Sign("u1", "alice", nil, time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewVerifier("s3cret", "someone-else")
		require.NoError(t, err)
		token, err := other.Sign("u1", "alice", nil, time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewVerifier_EmptySecret(t *testing.T) {
	_, err := NewVerifier("", "")
	assert.Error(t, err)
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Sign(Identity{
		UserID:   "admin-1",
		Email:    "admin@example.com",
		FullName: "Admin One",
	}, time.Hour)
	require.NoError(t, err)

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", identity.UserID)
	assert.Equal(t, "admin@example.com", identity.Email)
	assert.Equal(t, "Admin One", identity.FullName)
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Sign(Identity{UserID: "admin-1"}, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsWrongSecret(t *testing.T) {
	token, err := NewVerifier("secret-a").Sign(Identity{UserID: "admin-1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsMissingSubject(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Sign(Identity{Email: "no-subject@example.com"}, time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

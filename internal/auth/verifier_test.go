package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-engine/internal/models"
)

func TestVerifyRoundTrip(t *testing.T) {
	verifier := NewJWTVerifier("test-secret", "chat-engine")

	token, err := verifier.Sign(models.Identity{UserID: "u1", DisplayName: "alice", Role: models.RoleAdmin}, time.Minute)
	require.NoError(t, err)

	identity, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, "alice", identity.DisplayName)
	assert.Equal(t, models.RoleAdmin, identity.Role)
}

func TestVerifyDefaultsRole(t *testing.T) {
	verifier := NewJWTVerifier("test-secret", "chat-engine")

	token, err := verifier.Sign(models.Identity{UserID: "u1", DisplayName: "alice"}, time.Minute)
	require.NoError(t, err)

	identity, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, identity.Role)
}

func TestVerifyWrongSecret(t *testing.T) {
	signer := NewJWTVerifier("secret-a", "chat-engine")
	verifier := NewJWTVerifier("secret-b", "chat-engine")

	token, err := signer.Sign(models.Identity{UserID: "u1"}, time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	verifier := NewJWTVerifier("test-secret", "chat-engine")

	token, err := verifier.Sign(models.Identity{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyWrongIssuer(t *testing.T) {
	signer := NewJWTVerifier("test-secret", "someone-else")
	verifier := NewJWTVerifier("test-secret", "chat-engine")

	token, err := signer.Sign(models.Identity{UserID: "u1"}, time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	verifier := NewJWTVerifier("test-secret", "chat-engine")

	_, err := verifier.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

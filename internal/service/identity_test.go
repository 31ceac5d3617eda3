package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticIdentity(t *testing.T) {
	id, ok := StaticIdentity("u1").UserID()
	assert.True(t, ok)
	assert.Equal(t, "u1", id)

	_, ok = StaticIdentity("").UserID()
	assert.False(t, ok)
}

func TestSessionToken_RoundTrip(t *testing.T) {
	token, err := IssueSessionToken("u1", "secret", time.Hour)
	require.NoError(t, err)

	userID, err := ParseSessionToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	id, ok := NewTokenIdentity(token, "secret").UserID()
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}

func TestSessionToken_Rejected(t *testing.T) {
	token, err := IssueSessionToken("u1", "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, "other")
	assert.ErrorIs(t, err, ErrInvalidSessionToken)

	_, ok := NewTokenIdentity(token, "other").UserID()
	assert.False(t, ok)
	_, ok = NewTokenIdentity("", "secret").UserID()
	assert.False(t, ok)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &sessionClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseSessionToken(signed, "secret")
	assert.ErrorIs(t, err, ErrInvalidSessionToken)
}

func TestSessionToken_FallsBackToSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{Subject: "u2"})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	userID, err := ParseSessionToken(signed, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u2", userID)
}

func TestIssueSessionToken_RequiresUserAndSecret(t *testing.T) {
	_, err := IssueSessionToken("", "secret", time.Hour)
	assert.ErrorIs(t, err, ErrTokenGeneration)
	_, err = IssueSessionToken("u1", "", time.Hour)
	assert.ErrorIs(t, err, ErrTokenGeneration)
}

package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktors2008/mediadrive/internal/common"
)

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestFromToken_DecodesClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		UserID:           "u1",
		Email:            "user@example.com",
	})

	id, err := FromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "user@example.com", id.Email)
	assert.Equal(t, exp, id.ExpiresAt)
}

func TestFromToken_NoSigningKeyNeeded(t *testing.T) {
	// a token signed with an unknown key still decodes
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u2"})
	s, err := token.SignedString([]byte("server-only-secret"))
	require.NoError(t, err)

	id, err := FromToken(s)
	require.NoError(t, err)
	assert.Equal(t, "u2", id.UserID)
}

func TestFromToken_ExpiredRejected(t *testing.T) {
	token := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UserID: "u1",
	})

	_, err := FromToken(token)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestFromToken_MissingUserIDRejected(t *testing.T) {
	token := signToken(t, Claims{Email: "user@example.com"})

	_, err := FromToken(token)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestFromToken_GarbageRejected(t *testing.T) {
	_, err := FromToken("not-a-jwt")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignRefusesWithoutSecretThenRoundtrips(t *testing.T) {
	secret = nil

	_, err := Sign("user-1", "session-1", time.Hour)
	require.Error(t, err, "signing with no configured secret must fail")

	_, err = Parse("eyJhbGciOiJIUzI1NiJ9.e30.x")
	require.Error(t, err, "parsing with no configured secret must fail")

	SetSecret("unit-test-secret")
	token, err := Sign("user-1", "session-1", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "session-1", claims.SessionID)
}

func TestSetSecretIgnoresEmpty(t *testing.T) {
	SetSecret("unit-test-secret")
	SetSecret("")

	token, err := Sign("user-2", "session-2", time.Hour)
	require.NoError(t, err)
	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", claims.UserID)
}

package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metamodel/internal/web/auth"
)

func TestTokenCommand(t *testing.T) {
	t.Setenv("METAMODEL_SERVER_AUTH_SECRET", "test-secret-key")

	stdout, _, err := execute(t, "token", "ci")
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("test-secret-key", 0)
	require.NoError(t, err)
	claims, err := tokens.Validate(strings.TrimSpace(stdout))
	require.NoError(t, err)
	assert.Equal(t, "ci", claims.Subject)
	assert.NotNil(t, claims.ExpiresAt)

	stdout, _, err = execute(t, "token", "ci", "--ttl", "0")
	require.NoError(t, err)
	claims, err = tokens.Validate(strings.TrimSpace(stdout))
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestTokenCommandErrors(t *testing.T) {
	_, _, err := execute(t, "token", "ci")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.auth_secret")

	t.Setenv("METAMODEL_SERVER_AUTH_SECRET", "test-secret-key")
	_, _, err = execute(t, "token", "ci", "--ttl=-1h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ttl")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
port: 8080
env: production
jwt_secret: unit-test-jwt-secret
token:
  secret: unit-test-token-secret
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 30*time.Second, cfg.Validity())
	assert.Equal(t, 25*time.Second, cfg.RotateInterval())
	assert.Equal(t, 5*time.Second, cfg.ScanTimeout())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadRequiresTokenSecret(t *testing.T) {
	_, err := Load(writeConfig(t, `
jwt_secret: unit-test-jwt-secret
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token.secret")
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	_, err := Load(writeConfig(t, `
token:
  secret: unit-test-token-secret
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoadRejectsBadRotationMargin(t *testing.T) {
	_, err := Load(writeConfig(t, `
jwt_secret: s
token:
  secret: s
  validity_seconds: 10
  rotate_margin_seconds: 10
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rotate_margin_seconds")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+"\nmystery_knob: 1\n"))
	assert.Error(t, err)
}

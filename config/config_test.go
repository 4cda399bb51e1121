package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "escolar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("file values over defaults", func(t *testing.T) {
		path := writeConfig(t, `
api:
  url: https://api.uamvh.cloud
  timeout: 5s
store:
  driver: sqlite
  dsn: escolar.db
sync:
  policy: stop
  maxAttempts: 3
slack:
  token: xoxb-1
  errorChannel: C123
aws:
  region: us-east-1
  bucket: escolar-uploads
`)
		cfg, err := Load(ctx, path)
		require.NoError(t, err)

		assert.Equal(t, "https://api.uamvh.cloud", cfg.API.URL)
		assert.Equal(t, 5*time.Second, cfg.API.Timeout)
		assert.Equal(t, 3*time.Second, cfg.API.PingTimeout)
		assert.Equal(t, "sqlite", cfg.Store.Driver)
		assert.Equal(t, "stop", cfg.Sync.Policy)
		assert.Equal(t, 3, cfg.Sync.MaxAttempts)
		assert.True(t, cfg.Sync.OnReconnect)
		assert.Equal(t, "C123", cfg.Slack.ErrorChannelID)
		assert.Equal(t, "us-east-1", cfg.AWS.Region)
		assert.Equal(t, "escolar-uploads", cfg.AWS.Bucket)
	})

	t.Run("environment wins", func(t *testing.T) {
		path := writeConfig(t, "api:\n  url: https://api.uamvh.cloud\n")
		t.Setenv("ESCOLAR_API_URL", "http://localhost:4000")
		t.Setenv("ESCOLAR_STORE_DRIVER", "memory")
		t.Setenv("ESCOLAR_SYNC_MAX_ATTEMPTS", "9")

		cfg, err := Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:4000", cfg.API.URL)
		assert.Equal(t, "memory", cfg.Store.Driver)
		assert.Equal(t, 9, cfg.Sync.MaxAttempts)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, "sync:\n  policy: sometimes\nstore:\n  driver: redis\n")
		_, err := Load(ctx, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Sync.Policy")
		assert.Contains(t, err.Error(), "Store.Driver")
	})

	t.Run("email notices", func(t *testing.T) {
		path := writeConfig(t, "aws:\n  sesFrom: escolar@uamvh.mx\n")
		_, err := Load(ctx, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AWS.EmailOption.To failed on required_with")

		t.Setenv("ESCOLAR_SES_TO", "admin@uamvh.mx,direccion@uamvh.mx")
		cfg, err := Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "escolar@uamvh.mx", cfg.AWS.From)
		assert.Equal(t, []string{"admin@uamvh.mx", "direccion@uamvh.mx"}, cfg.AWS.To)
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

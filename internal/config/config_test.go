package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendAWS, cfg.Backend)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, 15*time.Second, cfg.AWS.CallTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Quota.PollInterval)
	assert.Equal(t, 3, cfg.Quota.PollConcurrency)
	assert.Equal(t, time.Hour, cfg.Audit.CleanupInterval)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  addr: ":9090"
backend: Sandbox
sandbox:
  key: file-key
auth:
  jwt_secret: from-file
quota:
  poll_interval: 10m
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("ACCOUNTS_AUTH_JWT_SECRET", "from-env")
	t.Setenv("ACCOUNTS_REDIS_ADDR", "localhost:6379")
	t.Setenv("ACCOUNTS_KMS_KEY_ID", " alias/accounts ")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, BackendSandbox, cfg.Backend)
	assert.Equal(t, "file-key", cfg.Sandbox.Key)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "alias/accounts", cfg.KMS.KeyID)
	assert.Equal(t, 10*time.Minute, cfg.Quota.PollInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Auth.JWTSecret = "secret"
		cfg.KMS.KeyID = "alias/accounts"
		return cfg
	}

	require.NoError(t, base().Validate())

	noAuth := base()
	noAuth.Auth.JWTSecret = ""
	assert.ErrorContains(t, noAuth.Validate(), "auth.jwt_secret")

	noKey := base()
	noKey.KMS.KeyID = ""
	assert.ErrorContains(t, noKey.Validate(), "kms.key_id")

	sandbox := base()
	sandbox.Backend = BackendSandbox
	assert.ErrorContains(t, sandbox.Validate(), "sandbox.key")

	unknown := base()
	unknown.Backend = "gcp"
	assert.ErrorContains(t, unknown.Validate(), "unknown backend")
}

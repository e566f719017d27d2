package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, int64(32), cfg.API.MaxUploadMiB)
	assert.Equal(t, filepath.Join("assets", "fonts", "Rillosta.ttf"), cfg.Assets.NameFont)
	assert.Equal(t, filepath.Join("assets", "fonts", "OpenSans-Regular.ttf"), cfg.Assets.DetailsFont)
	assert.Equal(t, "input", cfg.Storage.InputDir())
	assert.Equal(t, "output", cfg.Storage.OutputDir())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.MinIO.Enabled())
	assert.Equal(t, 1, cfg.Worker.Concurrency)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("DATA_DIR", "/srv/certs")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ACCESS_KEY_ID", "key")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "secret")
	t.Setenv("WORKER_CONCURRENCY", "2")
	t.Setenv("CLAMD_ADDR", "tcp://clamd:3310")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, filepath.Join("/srv/certs", "output"), cfg.Storage.OutputDir())
	assert.Equal(t, filepath.Join("/srv/certs", "jobs"), cfg.Storage.JobsDir())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "redis:6380", cfg.Redis.Addr())
	assert.True(t, cfg.MinIO.Enabled())
	assert.Equal(t, "certificates", cfg.MinIO.Bucket)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, "tcp://clamd:3310", cfg.Clamd.Addr)
}

func TestLoadRejectsPartialMinIO(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "minio:9000")

	_, err := Load()
	assert.EqualError(t, err, "minio access key id is required")
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("API_PORT", "0")

	_, err := Load()
	assert.EqualError(t, err, "api port must be positive")
}

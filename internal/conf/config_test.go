package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 8081
auth:
  jwt_secret: file-secret
storage:
  default_quota: 2048
  locker: local
queue:
  driver: pool
  workers: 2
thumbnailer:
  addr: thumbs:50051
  timeout: 5s
share:
  public_base_url: https://notes.example.com
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8081", cfg.Server.HTTPAddr())
	assert.Equal(t, int64(2048), cfg.Storage.DefaultQuota)
	assert.Equal(t, "local", cfg.Storage.Locker)
	assert.Equal(t, "pool", cfg.Queue.Driver)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, "thumbs:50051", cfg.Thumbnailer.Addr)
	assert.Equal(t, 5*time.Second, cfg.Thumbnailer.Timeout)

	// defaults fill the rest
	assert.Equal(t, "skynotes", cfg.MinIO.Bucket)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, 200, cfg.Thumbnail.MaxWidth)
	assert.Equal(t, int64(50_000_000), cfg.Thumbnail.MaxPixels)
	assert.Equal(t, 16, cfg.WorkerPool.Workers)
}

func TestLoadDerivesGRPCMessageSize(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"from max upload size", "storage:\n  max_upload_size: 10485760\n", 10485760 + grpcMessageOverhead},
		{"default upload size", "server:\n  port: 8080\n", 100<<20 + grpcMessageOverhead},
		{"explicit", "thumbnailer:\n  max_message_size: 8388608\n", 8388608},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Thumbnailer.MaxMessageSize)
			assert.Greater(t, cfg.Thumbnailer.MaxMessageSize, 4<<20)
		})
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SKYNOTES_SERVER_PORT", "9090")
	t.Setenv("SKYNOTES_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("SKYNOTES_STORAGE_MAX_UPLOAD_SIZE", "1024")
	t.Setenv("GRPC_ADDR", "legacy:7000")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, int64(1024), cfg.Storage.MaxUploadSize)
	assert.Equal(t, "legacy:7000", cfg.Thumbnailer.Addr)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Setenv("SKYNOTES_AUTH_JWT_SECRET", "s")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Queue.Driver)
	assert.Equal(t, int64(1<<30), cfg.Storage.DefaultQuota)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Auth:    AuthConfig{JWTSecret: "s"},
			Storage: StorageConfig{DefaultQuota: 1, Locker: "redis"},
			Queue:   QueueConfig{Driver: "redis"},
			Share:   ShareConfig{PublicBaseURL: "http://x"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"zero quota", func(c *Config) { c.Storage.DefaultQuota = 0 }, true},
		{"unknown locker", func(c *Config) { c.Storage.Locker = "etcd" }, true},
		{"unknown driver", func(c *Config) { c.Queue.Driver = "kafka" }, true},
		{"missing base url", func(c *Config) { c.Share.PublicBaseURL = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSkipsValidation(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, "0.0.0.0:50051", cfg.Server.GRPCAddr())

	_, err = LoadConfig("")
	assert.Error(t, err)
}

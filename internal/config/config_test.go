package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "mongodb://127.0.0.1:27017", cfg.Mongo.URI)
	assert.Equal(t, "soundscape", cfg.Mongo.Database)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 5*time.Minute, cfg.Presence.SweepInterval)
	assert.Equal(t, 180, cfg.History.RetainDays)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
port: 8080
env: Production
mongo_uri: mongo.internal:27017
mongo:
  database: amar
redis:
  host: cache
  port: 6380
  password: s3cret
  db: 2
allowed_origins: [" https://app.example.com ", ""]
admin_emails: ["Root@Example.com", "root@example.com"]
admin_email: ops@example.com
presence:
  sweep_interval: 90s
rate_limit:
  max: 10
  window: 2s
media:
  bucket: tracks
  path_style: true
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "mongodb://mongo.internal:27017", cfg.Mongo.URI)
	assert.Equal(t, "amar", cfg.Mongo.Database)
	assert.Equal(t, "redis://:s3cret@cache:6380/2", cfg.RedisURL)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, cfg.AdminEmails)
	assert.Equal(t, 90*time.Second, cfg.Presence.SweepInterval)
	assert.Equal(t, 10, cfg.RateLimit.Max)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "tracks", cfg.Media.Bucket)
	assert.True(t, cfg.Media.PathStyle)
	assert.Equal(t, "us-east-1", cfg.Media.Region)
}

func TestParseRedisURLWins(t *testing.T) {
	cfg, err := Parse([]byte("redis_url: cache:6379/1\nredis:\n  host: ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("prot: 80\n"))
	assert.Error(t, err)
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"port":     "port: 70000\n",
		"sweep":    "presence:\n  sweep_interval: -1s\n",
		"duration": "presence:\n  sweep_interval: soon\n",
		"window":   "rate_limit:\n  window: never\n",
		"redis db": "redis:\n  db: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: 7000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

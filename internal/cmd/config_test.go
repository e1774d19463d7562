package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "default-room", cfg.RoomID)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, 7*time.Second, cfg.HeartbeatInterval())
	assert.Equal(t, 35*time.Second, cfg.LivenessWindow())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
room_id: sprint-42
backend: redis
heartbeat_interval_sec: 5
liveness_window_sec: 30
redis:
  addr: redis.internal:6379
  db: 2
`), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sprint-42", cfg.RoomID)
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval())
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ROOM_ID", "env-room")
	t.Setenv("BACKEND", "nats")
	t.Setenv("NATS_URL", "nats://nats.internal:4222")

	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "env-room", cfg.RoomID)
	assert.Equal(t, BackendNATS, cfg.Backend)
	assert.Equal(t, "nats://nats.internal:4222", cfg.NATS.URL)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("BACKEND", "carrier-pigeon")
	_, err := loadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigRejectsTightLivenessWindow(t *testing.T) {
	t.Setenv("HEARTBEAT_INTERVAL_SEC", "30")
	t.Setenv("LIVENESS_WINDOW_SEC", "10")
	_, err := loadConfig("")
	assert.Error(t, err)
}

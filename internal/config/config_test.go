package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.StateStore.Type)
	assert.Equal(t, time.Hour, cfg.StateStore.TTL)
	assert.Equal(t, 8, cfg.Evaluator.Workers)
	assert.Equal(t, 120*time.Second, cfg.Agent.HeartbeatTimeout)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
Server:
  Addr: ":9090"
StateStore:
  Type: redis
  TTL: 30m
  Redis:
    Addr: "redis:6379"
Auth:
  APIKeys:
    - key-1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.StateStore.Type)
	assert.Equal(t, 30*time.Minute, cfg.StateStore.TTL)
	assert.Equal(t, "redis:6379", cfg.StateStore.Redis.Addr)
	assert.Equal(t, []string{"key-1"}, cfg.Auth.APIKeys)
	// 未配置的字段保持默认值
	assert.Equal(t, 2*time.Second, cfg.StateStore.OpTimeout)
}

func TestMarshalDefault(t *testing.T) {
	data, err := Marshal(Default())
	require.NoError(t, err)
	assert.Contains(t, string(data), "StateStore:")
}

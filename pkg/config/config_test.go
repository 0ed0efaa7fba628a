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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":3000", cfg.Server.HTTPAddr)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.SSE.HeartbeatInterval)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.False(t, cfg.Metrics.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
  allowed_origins:
    - "https://app.example.com"
  max_body_bytes: 65536
session:
  ttl: 5m
  sweep_interval: 30s
sse:
  heartbeat_interval: 10s
  event_buffer: 50
logging:
  level: debug
  format: json
metrics:
  enabled: true
  addr: ":9100"
  path: /metrics
tracing:
  enabled: true
  exporter: otlp-grpc
  endpoint: collector:4317
  insecure: true
  sample_rate: 0.25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(65536), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 30*time.Second, cfg.Session.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.SSE.HeartbeatInterval)
	assert.Equal(t, 50, cfg.SSE.EventBuffer)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "otlp-grpc", cfg.Tracing.Exporter)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRate)
}

func TestLoadFillsDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8081"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.HTTPAddr)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 30*time.Second, cfg.SSE.HeartbeatInterval)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("MCP_TEST_ADDR", ":7000")

	path := writeConfig(t, `
server:
  http_addr: "${MCP_TEST_ADDR}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.HTTPAddr)
}

func TestLoadRejectsBadDurations(t *testing.T) {
	path := writeConfig(t, `
session:
  ttl: "not-a-duration"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsNonsense(t *testing.T) {
	cfg := Default()
	cfg.Session.TTL = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.HTTPAddr = ""
	assert.Error(t, cfg.Validate())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, AdapterNumbers, cfg.Adapter.Kind)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
schema: people.graphql
adapter:
  kind: sql
  mapping: people.yaml
  dsn: file:people.db
server:
  addr: 127.0.0.1:9000
  timeout: 5s
  rate_limit: 10
  burst: 20
log:
  level: debug
  format: json
batch:
  workers: 8
`))
	require.NoError(t, err)
	require.Equal(t, "sql", cfg.Adapter.Kind)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.Equal(t, 5*time.Second, cfg.Server.Timeout)
	require.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	require.Equal(t, 10.0, cfg.Server.RateLimit)
	require.Equal(t, 20, cfg.Server.Burst)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, 8, cfg.Batch.Workers)
	require.Equal(t, "trellis", cfg.OTel.Service)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "sever: {}", "field sever not found"},
		{"unknown adapter", "adapter: {kind: mongo}", `unknown adapter kind "mongo"`},
		{"json without data", "schema: s.graphql\nadapter: {kind: json}", "adapter json requires schema and adapter.data"},
		{"sql without dsn", "schema: s.graphql\nadapter: {kind: sql, mapping: m.yaml}", "adapter sql requires"},
		{"negative rate", "server: {rate_limit: -1}", "server.rate_limit must not be negative"},
		{"zero burst", "server: {rate_limit: 1, burst: 0}", "server.burst must be at least 1"},
		{"zero workers", "batch: {workers: 0}", "batch.workers must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trellis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema: people.graphql\nadapter: {kind: json, data: /data/people.json}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "people.graphql"), cfg.Schema)
	require.Equal(t, "/data/people.json", cfg.Adapter.Data)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

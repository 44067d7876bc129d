package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanhub.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Server.Port, cfg.Server.Port)
	assert.Equal(t, def.DBPath, cfg.DBPath)
	assert.Equal(t, def.ManifestDir, cfg.ManifestDir)
	assert.Equal(t, def.Backend.Type, cfg.Backend.Type)
	assert.Equal(t, def.Scan.MaxSessionMinutes, cfg.Scan.MaxSessionMinutes)
	assert.Equal(t, "127.0.0.1:8480", cfg.Addr())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"empty manifest dir", func(c *Config) { c.ManifestDir = "" }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown backend", func(c *Config) { c.Backend.Type = "docker" }},
		{"remote without url", func(c *Config) { c.Backend.Type = "remote"; c.Backend.URL = "" }},
		{"negative session budget", func(c *Config) { c.Scan.MaxSessionMinutes = -1 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRemoteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: 0.0.0.0
  port: 9000
db_path: /var/lib/scanhub/scanhub.db
manifest_dir: /etc/scanhub/manifests
backend:
  type: remote
  url: http://sandbox:8081/execute
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "remote", cfg.Backend.Type)
	assert.Equal(t, "http://sandbox:8081/execute", cfg.Backend.URL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
}

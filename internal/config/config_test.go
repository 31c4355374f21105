package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "service", cfg.Model.Backend)
	assert.Equal(t, 1000, cfg.Summarize.ChunkSize)
	assert.Equal(t, 3, cfg.Summarize.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Summarize.ChunkTimeout)
	assert.Equal(t, 150, cfg.Summarize.Params.MaxLength)
	assert.Equal(t, 40, cfg.Summarize.Params.MinLength)
	assert.Equal(t, 4, cfg.Summarize.Params.NumBeams)
	assert.InDelta(t, 2.0, cfg.Summarize.Params.LengthPenalty, 1e-9)
	assert.True(t, cfg.Summarize.Params.EarlyStopping)
	assert.Equal(t, 512, cfg.QA.MaxTokens)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{".pdf", ".docx", ".txt"}, cfg.Watch.Extensions)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		field string
	}{
		{"bad cache backend", "cache.backend", "redis", "Config.Cache.Backend"},
		{"bad model backend", "model.backend", "onnx", "Config.Model.Backend"},
		{"zero concurrency", "summarize.concurrency", 0, "Config.Summarize.Concurrency"},
		{"port out of range", "server.port", 70000, "Config.Server.Port"},
		{"min above max", "summarize.params.min_length", 500, "Config.Summarize.Params.MinLength"},
		{"bad log style", "log.style", "pretty", "Config.Log.Style"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfigure_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docanalyzer.yaml")
	yaml := `
server:
  port: 9000
summarize:
  chunk_size: 400
  chunk_timeout: 5s
cache:
  backend: sqlite
  path: /tmp/x.db
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	v := newViper(t)
	require.NoError(t, Configure(v, path))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 400, cfg.Summarize.ChunkSize)
	assert.Equal(t, 5*time.Second, cfg.Summarize.ChunkTimeout)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, "/tmp/x.db", cfg.Cache.Path)
	// untouched keys keep defaults
	assert.Equal(t, 3, cfg.Summarize.Concurrency)
}

func TestConfigure_MissingExplicitFile(t *testing.T) {
	v := newViper(t)
	err := Configure(v, filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestConfigure_NoDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	v := newViper(t)
	require.NoError(t, Configure(v, ""))
}

func TestConfigure_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DOCANALYZER_SERVER_PORT", "9191")
	t.Setenv("DOCANALYZER_CACHE_BACKEND", "none")

	v := newViper(t)
	require.NoError(t, Configure(v, ""))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "none", cfg.Cache.Backend)
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blocktree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
inlineThreshold: 64
checksums: false
logLevel: debug
pack:
  structured: true
  units:
    b: m/s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.InlineThreshold)
	assert.Equal(t, 64, *cfg.InlineThreshold)
	require.NotNil(t, cfg.Checksums)
	assert.False(t, *cfg.Checksums)
	assert.Nil(t, cfg.VerifyChecksums)
	assert.True(t, cfg.Pack.Structured)
	assert.Equal(t, "table", cfg.Pack.Key, "defaults survive a partial file")
	assert.Equal(t, "m/s", cfg.Pack.Units["b"])

	l, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
	assert.Len(t, cfg.WriteOptions(), 2)
	assert.Empty(t, cfg.ReadOptions())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeFile(t, "inlineTreshold: 3\n"))
	require.Error(t, err)
}

func TestLoadRejectsBadLevel(t *testing.T) {
	_, err := Load(writeFile(t, "logLevel: loud\n"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvInlineThreshold: "8",
		EnvLogLevel:        "warn",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, 8, *cfg.InlineThreshold)
	l, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	env[EnvInlineThreshold] = "many"
	require.Error(t, Default().ApplyEnv(func(k string) string { return env[k] }))
}

func TestResolve(t *testing.T) {
	path := writeFile(t, "inlineThreshold: 4\n")
	t.Setenv(EnvConfig, path)
	t.Setenv(EnvInlineThreshold, "")
	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, 4, *cfg.InlineThreshold)

	t.Setenv(EnvInlineThreshold, "16")
	cfg, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, 16, *cfg.InlineThreshold)

	t.Setenv(EnvConfig, "")
	cfg, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, 16, *cfg.InlineThreshold)
	assert.Equal(t, ",", cfg.Pack.Delimiter)
}

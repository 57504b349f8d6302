package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvmarrod/site-spider/internal/profile"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spider.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 8, cfg.ConcurrentWorkers)
	assert.Equal(t, filepath.Join("out", "go.db"), cfg.LedgerFor("out", "go"))
	assert.Equal(t, filepath.Join("out", "go.metrics.json"), cfg.MetricsFor("out", "go"))
}

func TestExplicitOutputPaths(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{"ledger_path": "/var/lib/spider.db", "metrics_path": "/tmp/m.json"}`))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/spider.db", cfg.LedgerFor("out", "go"))
	assert.Equal(t, "/tmp/m.json", cfg.MetricsFor("out", "go"))
}

func TestLoadConfigMissingDefaultFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := LoadConfig(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfigValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{
		"concurrent_workers": 2,
		"request_timeout_ms": 3000,
		"log_level": "debug",
		"profiles": [
			{"name": "example", "whitelist": ["https://ex.com/"], "blacklist": ["https://ex.com/admin"]}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ConcurrentWorkers)
	assert.Equal(t, 3000, cfg.RequestTimeoutMs)
	assert.Equal(t, "debug", cfg.LogLevel)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	p, err := reg.Lookup("example")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ex.com/admin"}, p.Blacklist)
	assert.Equal(t, "example", reg.Names()[len(reg.Names())-1])
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"unknown field", `{"seed_url": "https://ex.com"}`},
		{"negative workers", `{"concurrent_workers": -1}`},
		{"short timeout", `{"request_timeout_ms": 10}`},
		{"profile without whitelist", `{"profiles": [{"name": "empty"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestProfileErrorIsWrapped(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{"profiles": [{"name": "empty"}]}`))
	assert.True(t, errors.Is(err, profile.ErrEmptyWhitelist))
}

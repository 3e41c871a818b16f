package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.json")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadConfigKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level": "debug", "limbs_per_bid": 3}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.LimbsPerBid)
	assert.Equal(t, "keys", cfg.KeyDir)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"log level":   func(c *Config) { c.LogLevel = "loud" },
		"key dir":     func(c *Config) { c.KeyDir = "" },
		"ledger":      func(c *Config) { c.LedgerPath = "" },
		"concurrency": func(c *Config) { c.MaxConcurrency = 0 },
		"timeout":     func(c *Config) { c.TimeoutSeconds = -1 },
		"limbs":       func(c *Config) { c.LimbsPerBid = 4 },
		"audit path":  func(c *Config) { c.AuditLogPath = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoggerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	logPath, auditPath := filepath.Join(dir, "a.log"), filepath.Join(dir, "audit.log")
	l, err := NewLogger("debug", logPath, auditPath)
	require.NoError(t, err)
	l.Info("hello %d", 1)
	l.Warn("careful")
	l.Audit("settle", map[string]interface{}{"amount": 3})
	require.NoError(t, l.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello 1")

	audit, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(audit), "careful")
	assert.Contains(t, string(audit), `"event":"settle"`)
}

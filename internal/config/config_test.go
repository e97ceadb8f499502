package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("BD_SERVER_PORT", "9999")
	t.Setenv("BD_LOG_LEVEL", "debug")
	t.Setenv("BD_LIMITS_RPS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, float64(5), cfg.Limits.RequestsPerSecond)
	// Untouched fields keep their defaults.
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("BD_LOG_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "unknown log output",
			mutate:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: "invalid log output",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.Limits.RequestsPerSecond = 0 },
			wantErr: "requests_per_second",
		},
		{
			name:    "zero burst",
			mutate:  func(c *Config) { c.Limits.Burst = 0 },
			wantErr: "burst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestResolvePathsOverrides(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(dir, "custom-data")
	cfg.Paths.LogsDir = filepath.Join(dir, "custom-logs")

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "custom-data"), paths.DataDir)
	assert.Equal(t, filepath.Join(dir, "custom-data", "entitlement.json"), paths.EntitlementFile)
	assert.Equal(t, filepath.Join(dir, "custom-data", "license_keys.json"), paths.KeysFile)
	assert.Equal(t, filepath.Join(dir, "custom-logs"), paths.LogsDir)
}

func TestResolvePathsFileOverridesWinOverDataDir(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.EntitlementFile = filepath.Join(dir, "elsewhere", "state.json")

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "elsewhere", "state.json"), paths.EntitlementFile)
	assert.Equal(t, filepath.Join(dir, "data", "license_keys.json"), paths.KeysFile)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	p := &Paths{
		DataDir: filepath.Join(dir, "data"),
		LogsDir: filepath.Join(dir, "logs"),
	}

	require.NoError(t, p.EnsureDirectories())
	assert.DirExists(t, p.DataDir)
	assert.DirExists(t, p.LogsDir)

	// Idempotent.
	assert.NoError(t, p.EnsureDirectories())
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, FileExists(filepath.Join(dir, "missing.json")))
	assert.False(t, FileExists(dir))
}

func TestServerAddr(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 9090}
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
}

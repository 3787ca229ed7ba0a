package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfycore/veko/internal/constants"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// withFlags swaps in a fresh command line so flagChanged sees exactly
// the flags this test passed.
func withFlags(t *testing.T, args ...string) *CLIFlags {
	t.Helper()
	prev := pflag.CommandLine
	t.Cleanup(func() { pflag.CommandLine = prev })

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := &CLIFlags{
		Host:        fs.String("host", "localhost", ""),
		Port:        fs.Int("port", 3000, ""),
		MetricsPort: fs.Int("metrics-port", 9090, ""),
		WSPort:      fs.Int("ws-port", 35729, ""),
		RoutesDir:   fs.String("routes-dir", "routes", ""),
		ViewsDir:    fs.String("views-dir", "views", ""),
		LayoutsDir:  fs.String("layouts-dir", "layouts", ""),
		PublicDir:   fs.String("public-dir", "public", ""),
		Dev:         fs.Bool("dev", false, ""),
		DevDebounce: fs.Duration("dev-debounce", constants.DevDebounce, ""),
		LogLevel:    fs.String("log-level", "info", ""),
		LogFormat:   fs.String("log-format", "console", ""),
	}
	require.NoError(t, fs.Parse(args))
	pflag.CommandLine = fs
	return flags
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "routes", cfg.App.RoutesDir)
	assert.Equal(t, 35729, cfg.Dev.WSPort)
	assert.False(t, cfg.Dev.Enabled)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeConfigFile(t, "veko.yaml", `
server:
  port: 8081
dev:
  enabled: true
  ws_port: 36000
app:
  routes_dir: app/routes
`)
	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.Dev.Enabled)
	assert.Equal(t, 36000, cfg.Dev.WSPort)
	assert.Equal(t, "app/routes", cfg.App.RoutesDir)
	// Untouched values keep their defaults.
	assert.Equal(t, "views", cfg.App.ViewsDir)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := writeConfigFile(t, "veko.json", `{"server": {"port": 8082}}`)
	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 8082, cfg.Server.Port)
}

func TestLoadConfigFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "bad.yaml", "server: {port: 8081")
		_, err := LoadConfig(path, nil)
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeConfigFile(t, "bad.toml", "port = 8081")
		_, err := LoadConfig(path, nil)
		assert.Error(t, err)
	})
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "veko.yaml", "server: {port: 8081}")
	t.Setenv(constants.EnvPort, "8090")
	t.Setenv(constants.EnvDevEnabled, "true")
	t.Setenv(constants.EnvDevDebounce, "750ms")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.True(t, cfg.Dev.Enabled)
	assert.Equal(t, 750*time.Millisecond, cfg.Dev.Debounce)
}

func TestLoadConfigCLIOverridesEnv(t *testing.T) {
	t.Setenv(constants.EnvPort, "8090")
	flags := withFlags(t, "--port", "8100", "--dev")

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, 8100, cfg.Server.Port)
	assert.True(t, cfg.Dev.Enabled)
}

func TestLoadConfigUnchangedFlagsDoNotOverride(t *testing.T) {
	t.Setenv(constants.EnvPort, "8090")
	flags := withFlags(t) // defaults registered, nothing passed

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	// The flag's default (3000) must not shadow the env value.
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestLoadConfigValidation(t *testing.T) {
	path := writeConfigFile(t, "veko.yaml", "server: {port: 70000}")
	_, err := LoadConfig(path, nil)
	assert.Error(t, err)
}

func TestWatchRoots(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []string{"routes", "views", "layouts"}, cfg.WatchRoots())

	cfg.Dev.WatchDirs = []string{"src"}
	assert.Equal(t, []string{"src"}, cfg.WatchRoots())
}

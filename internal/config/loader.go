package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/alfycore/veko/internal/constants"
)

// LoadConfig loads configuration with precedence:
// 1. Explicit CLI flags (highest priority)
// 2. Environment variables
// 3. Configuration file values
// 4. Default configuration values (lowest priority)
func LoadConfig(configFile string, cliFlags *CLIFlags) (*Config, error) {
	config := DefaultConfig()

	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		mergeConfig(config, fileConfig)
	}

	loadFromEnv(config)

	if cliFlags != nil {
		overrideWithCLI(config, cliFlags)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// CLIFlags contains CLI flag values that can override configuration.
// Only flags the user actually set (per pflag's Changed) override
// other configuration sources.
type CLIFlags struct {
	Host        *string
	Port        *int
	MetricsPort *int
	WSPort      *int
	RoutesDir   *string
	ViewsDir    *string
	LayoutsDir  *string
	PublicDir   *string
	Dev         *bool
	DevDebounce *time.Duration
	LogLevel    *string
	LogFormat   *string
}

// loadFromFile loads configuration from a YAML or JSON file
func loadFromFile(filePath string) (*Config, error) {
	if !filepath.IsAbs(filePath) {
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", filePath, err)
		}
		filePath = absPath
	}

	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	config := &Config{}
	ext := filepath.Ext(filePath)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) {
	if val := os.Getenv(constants.EnvHost); val != "" {
		config.Server.Host = val
	}
	if val := os.Getenv(constants.EnvPort); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.Port = port
		}
	}
	if val := os.Getenv(constants.EnvMetricsPort); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.MetricsPort = port
		}
	}
	if val := os.Getenv(constants.EnvWSPort); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Dev.WSPort = port
		}
	}
	if val := os.Getenv(constants.EnvReadTimeout); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Server.ReadTimeout = duration
		}
	}
	if val := os.Getenv(constants.EnvWriteTimeout); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Server.WriteTimeout = duration
		}
	}
	if val := os.Getenv(constants.EnvIdleTimeout); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Server.IdleTimeout = duration
		}
	}
	if val := os.Getenv(constants.EnvShutdownTimeout); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Server.ShutdownTimeout = duration
		}
	}
	if val := os.Getenv(constants.EnvRoutesDir); val != "" {
		config.App.RoutesDir = val
	}
	if val := os.Getenv(constants.EnvViewsDir); val != "" {
		config.App.ViewsDir = val
	}
	if val := os.Getenv(constants.EnvLayoutsDir); val != "" {
		config.App.Layouts.LayoutsDir = val
	}
	if val := os.Getenv(constants.EnvPublicDir); val != "" {
		config.App.PublicDir = val
	}
	if val := os.Getenv(constants.EnvDevEnabled); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Dev.Enabled = enabled
		}
	}
	if val := os.Getenv(constants.EnvDevDebounce); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.Dev.Debounce = duration
		}
	}
	if val := os.Getenv(constants.EnvLogLevel); val != "" {
		config.Observability.Logging.Level = val
	}
	if val := os.Getenv(constants.EnvLogFormat); val != "" {
		config.Observability.Logging.Format = val
	}
}

// overrideWithCLI overrides configuration with CLI flag values.
// Only explicitly set CLI flags override other configuration sources.
func overrideWithCLI(config *Config, flags *CLIFlags) {
	if flags.Host != nil && flagChanged("host") {
		config.Server.Host = *flags.Host
	}
	if flags.Port != nil && flagChanged("port") {
		config.Server.Port = *flags.Port
	}
	if flags.MetricsPort != nil && flagChanged("metrics-port") {
		config.Server.MetricsPort = *flags.MetricsPort
	}
	if flags.WSPort != nil && flagChanged("ws-port") {
		config.Dev.WSPort = *flags.WSPort
	}
	if flags.RoutesDir != nil && flagChanged("routes-dir") {
		config.App.RoutesDir = *flags.RoutesDir
	}
	if flags.ViewsDir != nil && flagChanged("views-dir") {
		config.App.ViewsDir = *flags.ViewsDir
	}
	if flags.LayoutsDir != nil && flagChanged("layouts-dir") {
		config.App.Layouts.LayoutsDir = *flags.LayoutsDir
	}
	if flags.PublicDir != nil && flagChanged("public-dir") {
		config.App.PublicDir = *flags.PublicDir
	}
	if flags.Dev != nil && flagChanged("dev") {
		config.Dev.Enabled = *flags.Dev
	}
	if flags.DevDebounce != nil && flagChanged("dev-debounce") {
		config.Dev.Debounce = *flags.DevDebounce
	}
	if flags.LogLevel != nil && flagChanged("log-level") {
		config.Observability.Logging.Level = *flags.LogLevel
	}
	if flags.LogFormat != nil && flagChanged("log-format") {
		config.Observability.Logging.Format = *flags.LogFormat
	}
}

func flagChanged(name string) bool {
	f := pflag.Lookup(name)
	return f != nil && f.Changed
}

// mergeConfig merges file configuration into the base configuration
func mergeConfig(base *Config, file *Config) {
	if file.Server.Host != "" {
		base.Server.Host = file.Server.Host
	}
	if file.Server.Port > 0 {
		base.Server.Port = file.Server.Port
	}
	if file.Server.MetricsPort > 0 {
		base.Server.MetricsPort = file.Server.MetricsPort
	}
	if file.Server.ReadTimeout > 0 {
		base.Server.ReadTimeout = file.Server.ReadTimeout
	}
	if file.Server.WriteTimeout > 0 {
		base.Server.WriteTimeout = file.Server.WriteTimeout
	}
	if file.Server.IdleTimeout > 0 {
		base.Server.IdleTimeout = file.Server.IdleTimeout
	}
	if file.Server.MaxRequestSize > 0 {
		base.Server.MaxRequestSize = file.Server.MaxRequestSize
	}
	if file.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = file.Server.ShutdownTimeout
	}

	if file.Dev.Enabled {
		base.Dev.Enabled = true
	}
	if file.Dev.WSPort > 0 {
		base.Dev.WSPort = file.Dev.WSPort
	}
	if file.Dev.Debounce > 0 {
		base.Dev.Debounce = file.Dev.Debounce
	}
	if len(file.Dev.WatchDirs) > 0 {
		base.Dev.WatchDirs = file.Dev.WatchDirs
	}
	if file.Dev.Prefetch.Enabled {
		base.Dev.Prefetch.Enabled = true
	}
	if file.Dev.Prefetch.PrefetchDelay > 0 {
		base.Dev.Prefetch.PrefetchDelay = file.Dev.Prefetch.PrefetchDelay
	}

	if file.App.RoutesDir != "" {
		base.App.RoutesDir = file.App.RoutesDir
	}
	if file.App.ViewsDir != "" {
		base.App.ViewsDir = file.App.ViewsDir
	}
	if file.App.PublicDir != "" {
		base.App.PublicDir = file.App.PublicDir
	}
	if file.App.Layouts.LayoutsDir != "" {
		base.App.Layouts.LayoutsDir = file.App.Layouts.LayoutsDir
	}
	if file.App.Layouts.Extension != "" {
		base.App.Layouts.Extension = file.App.Layouts.Extension
	}

	if file.Observability.Logging.Level != "" {
		base.Observability.Logging.Level = file.Observability.Logging.Level
	}
	if file.Observability.Logging.Format != "" {
		base.Observability.Logging.Format = file.Observability.Logging.Format
	}
	if file.Observability.Metrics.Enabled {
		base.Observability.Metrics.Enabled = true
	}
	if file.Observability.Metrics.Path != "" {
		base.Observability.Metrics.Path = file.Observability.Metrics.Path
	}
	if file.Observability.Tracing.Enabled {
		base.Observability.Tracing.Enabled = true
	}
	if file.Observability.Tracing.ServiceName != "" {
		base.Observability.Tracing.ServiceName = file.Observability.Tracing.ServiceName
	}
	if file.Observability.Tracing.Environment != "" {
		base.Observability.Tracing.Environment = file.Observability.Tracing.Environment
	}
}

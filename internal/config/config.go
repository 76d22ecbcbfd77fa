package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDataDir        = "plugins"
	defaultName           = "config"
	defaultListenAddr     = ":8080"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 5.0
	defaultRateLimitBurst = 10
)

// Config aggregates the resolved settings of the command.
type Config struct {
	// DataDir is the plugin data folder the config path is resolved against.
	DataDir string
	// Path is the optional directory below DataDir.
	Path string
	// Name is the file name without extension.
	Name     string
	LogLevel string

	ListenAddr           string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int

	Watch         bool
	WatchDebounce time.Duration
}

// CLIOverrides holds command-line flag overrides. Nil fields are not set.
type CLIOverrides struct {
	DataDir        *string
	Path           *string
	Name           *string
	LogLevel       *string
	ListenAddr     *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	Watch          *bool
}

// Load resolves the configuration with precedence:
// CLI flags > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FilePath returns the location of the managed config file.
func (c Config) FilePath() string {
	return filepath.Join(c.DataDir, c.Path, c.Name+".yml")
}

func defaultConfig() Config {
	return Config{
		DataDir:              defaultDataDir,
		Name:                 defaultName,
		LogLevel:             defaultLogLevel,
		ListenAddr:           defaultListenAddr,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		Watch:                true,
		WatchDebounce:        100 * time.Millisecond,
	}
}

// applyEnvConfig applies ADVCONFIG_* environment variables.
func applyEnvConfig(cfg *Config) error {
	if v := env("ADVCONFIG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := env("ADVCONFIG_PATH"); v != "" {
		cfg.Path = v
	}
	if v := env("ADVCONFIG_NAME"); v != "" {
		cfg.Name = v
	}
	if v := env("ADVCONFIG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := env("ADVCONFIG_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := env("ADVCONFIG_REQUEST_LOGGING"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ADVCONFIG_REQUEST_LOGGING: %w", err)
		}
		cfg.EnableRequestLogging = enabled
	}
	if v := env("ADVCONFIG_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ADVCONFIG_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = rps
	}
	if v := env("ADVCONFIG_RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ADVCONFIG_RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimitBurst = burst
	}
	if v := env("ADVCONFIG_WATCH_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ADVCONFIG_WATCH_DEBOUNCE: %w", err)
		}
		cfg.WatchDebounce = d
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.DataDir != nil && *overrides.DataDir != "" {
		cfg.DataDir = *overrides.DataDir
	}
	if overrides.Path != nil {
		cfg.Path = *overrides.Path
	}
	if overrides.Name != nil && *overrides.Name != "" {
		cfg.Name = *overrides.Name
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(*overrides.LogLevel)
	}
	if overrides.ListenAddr != nil && *overrides.ListenAddr != "" {
		cfg.ListenAddr = *overrides.ListenAddr
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
	if overrides.Watch != nil {
		cfg.Watch = *overrides.Watch
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("config name cannot be empty")
	}
	if strings.ContainsAny(cfg.Name, `/\`) {
		return fmt.Errorf("config name %q must not contain path separators", cfg.Name)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit rps must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit burst must be >= 0")
	}
	if cfg.WatchDebounce < 0 {
		return fmt.Errorf("watch debounce must be >= 0")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/metamodel/internal/metamodel/programming"
)

// ConfigName is the base name of the configuration file (metamodel.yml)
const ConfigName = "metamodel"

// EnvPrefix prefixes environment overrides, e.g. METAMODEL_SERVER_PORT
const EnvPrefix = "METAMODEL"

// Config represents the metamodel tool configuration
type Config struct {
	Metamodel MetamodelConfig `mapstructure:"metamodel"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
}

// MetamodelConfig controls how the metamodel is built
type MetamodelConfig struct {
	ExcludeMarkers []string `mapstructure:"exclude_markers"`
	Parallelism    int      `mapstructure:"parallelism"`
	ValueTypes     []string `mapstructure:"value_types"`
	Snapshot       string   `mapstructure:"snapshot"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig represents the query server configuration
type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	Host      string `mapstructure:"host"`
	APIPrefix string `mapstructure:"api_prefix"`

	// Profiling mounts pprof handlers under /debug/pprof
	Profiling       bool          `mapstructure:"profiling"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RateLimit is the number of query requests per minute allowed per
	// client address; zero disables throttling
	RateLimit int `mapstructure:"rate_limit"`

	// RateLimitRedis is a Redis address; when set, rate limit windows are
	// shared across servers instead of kept in memory
	RateLimitRedis string `mapstructure:"rate_limit_redis"`

	// AuthSecret signs bearer tokens; when set every query route requires
	// one. Usually supplied as METAMODEL_SERVER_AUTH_SECRET.
	AuthSecret string        `mapstructure:"auth_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// Load loads the configuration from metamodel.yml or metamodel.yaml in the
// project root, falling back to defaults when there is none
func Load() (*Config, error) {
	v := newViper()

	if root, err := GetProjectRoot(); err == nil {
		v.AddConfigPath(root)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	return unmarshal(v)
}

// LoadFile loads the configuration from an explicit file
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	// Set defaults
	v.SetDefault("metamodel.exclude_markers", []string{string(programming.MarkerDeprecated)})
	v.SetDefault("metamodel.parallelism", 1)
	v.SetDefault("metamodel.value_types", []string{})
	v.SetDefault("metamodel.snapshot", "build/metamodel.json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.api_prefix", "")
	v.SetDefault("server.profiling", false)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_limit_redis", "")
	v.SetDefault("server.auth_secret", "")
	v.SetDefault("server.token_ttl", "24h")

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Filter returns the marker filter handed to the programming model
func (c MetamodelConfig) Filter() programming.Filter {
	if len(c.ExcludeMarkers) == 0 {
		return programming.IncludeAll
	}
	markers := make([]programming.Marker, len(c.ExcludeMarkers))
	for i, m := range c.ExcludeMarkers {
		markers[i] = programming.Marker(m)
	}
	return programming.ExcludeMarkers(markers...)
}

// Logger builds the zap logger described by the configuration
func (c LogConfig) Logger() (*zap.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if c.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Address returns the host:port the query server listens on
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func parseLevel(s string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", s)
	}
	return level, nil
}

// GetProjectRoot tries to find the project root by looking for metamodel.yml
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigName+".yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, ConfigName+".yaml")); err == nil {
			return dir, nil
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", fmt.Errorf("not in a metamodel project (no %s.yml found)", ConfigName)
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Metamodel.Parallelism < 1 {
		return fmt.Errorf("metamodel.parallelism must be at least 1, got: %d", cfg.Metamodel.Parallelism)
	}

	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Log.Format != "console" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'console' or 'json', got: %s", cfg.Log.Format)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}

	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got: %s", cfg.Server.ShutdownTimeout)
	}

	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got: %d", cfg.Server.RateLimit)
	}
	if cfg.Server.RateLimitRedis != "" && cfg.Server.RateLimit == 0 {
		return fmt.Errorf("server.rate_limit_redis requires server.rate_limit")
	}

	if cfg.Server.TokenTTL < 0 {
		return fmt.Errorf("server.token_ttl must not be negative, got: %s", cfg.Server.TokenTTL)
	}

	// Validate API prefix format
	if cfg.Server.APIPrefix != "" {
		if !strings.HasPrefix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must start with '/', got: %s", cfg.Server.APIPrefix)
		}
		if strings.HasSuffix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must not end with '/', got: %s", cfg.Server.APIPrefix)
		}
	}
	return nil
}

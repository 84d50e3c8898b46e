// Package config loads service configuration from a YAML file and
// ACCOUNTS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. ACCOUNTS_DATABASE_DSN.
const EnvPrefix = "ACCOUNTS"

// DefaultConfigPath is used when no path is given and the file exists.
const DefaultConfigPath = "config.yaml"

// Backend names.
const (
	BackendAWS     = "aws"
	BackendSandbox = "sandbox"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig configures the record store.
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTIssuer        string        `mapstructure:"jwt_issuer"`
	JWTPublicKeyFile string        `mapstructure:"jwt_public_key_file"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
}

// AWSConfig configures provider calls.
type AWSConfig struct {
	Region      string        `mapstructure:"region"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// KMSConfig configures the key-management gateway.
type KMSConfig struct {
	KeyID string `mapstructure:"key_id"`
}

// SandboxConfig configures the in-process backend.
type SandboxConfig struct {
	KeyID       string   `mapstructure:"key_id"`
	Key         string   `mapstructure:"key"`
	RetiredKeys []string `mapstructure:"retired_keys"`
}

// RedisConfig configures the optional quota configuration cache.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// QuotaConfig configures the background quota poller.
type QuotaConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollConcurrency int           `mapstructure:"poll_concurrency"`
}

// AuditConfig configures audit retention cleanup.
type AuditConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	AWS      AWSConfig      `mapstructure:"aws"`
	KMS      KMSConfig      `mapstructure:"kms"`
	Backend  string         `mapstructure:"backend"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.dsn", "file:data/accounts.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.call_timeout", 15*time.Second)
	v.SetDefault("backend", BackendAWS)
	v.SetDefault("sandbox.key_id", "sandbox-1")
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("quota.poll_interval", 30*time.Minute)
	v.SetDefault("quota.poll_concurrency", 3)
	v.SetDefault("audit.cleanup_interval", time.Hour)

	// Keys without defaults must be bound for Unmarshal to see the environment.
	for _, key := range []string{
		"auth.jwt_secret", "auth.jwt_issuer", "auth.jwt_public_key_file",
		"kms.key_id", "sandbox.key", "sandbox.retired_keys",
		"redis.addr", "redis.password", "redis.db", "log.file",
	} {
		_ = v.BindEnv(key)
	}
}

// Load reads the configuration. An empty path falls back to DefaultConfigPath
// when that file exists; otherwise only defaults and the environment apply.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	path = strings.TrimSpace(path)
	if path == "" {
		if _, errStat := os.Stat(DefaultConfigPath); errStat == nil {
			path = DefaultConfigPath
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if errRead := v.ReadInConfig(); errRead != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	var cfg Config
	if errUnmarshal := v.Unmarshal(&cfg); errUnmarshal != nil {
		return Config{}, fmt.Errorf("config: decode: %w", errUnmarshal)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.AWS.Region = strings.TrimSpace(c.AWS.Region)
	c.KMS.KeyID = strings.TrimSpace(c.KMS.KeyID)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate checks the settings needed to serve requests.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTSecret == "" && strings.TrimSpace(c.Auth.JWTPublicKeyFile) == "" {
		errs = append(errs, errors.New("auth.jwt_secret or auth.jwt_public_key_file is required"))
	}
	switch c.Backend {
	case BackendAWS:
		if c.KMS.KeyID == "" {
			errs = append(errs, errors.New("kms.key_id is required for the aws backend"))
		}
	case BackendSandbox:
		if c.Sandbox.Key == "" {
			errs = append(errs, errors.New("sandbox.key is required for the sandbox backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.Quota.PollConcurrency < 0 {
		errs = append(errs, errors.New("quota.poll_concurrency must not be negative"))
	}
	return errors.Join(errs...)
}

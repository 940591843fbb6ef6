package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvProgramID    = "PROGRAM_ID"
	EnvTreasury     = "TREASURY"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RedisConfig holds the optional Redis backend for bid rate limiting.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RateLimitConfig bounds how many bids one bidder may submit per second.
// A negative BidsPerSecond disables the limit.
type RateLimitConfig struct {
	BidsPerSecond int         `yaml:"bids-per-second"`
	Redis         RedisConfig `yaml:"redis"`
}

// TasksConfig controls background jobs.
type TasksConfig struct {
	ExpiryScanInterval time.Duration `yaml:"expiry-scan-interval"`
}

// FaucetConfig controls the devnet airdrop endpoint.
type FaucetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MaxLamports uint64 `yaml:"max-lamports"`
}

// ServerConfig is the full service configuration read from the YAML file.
type ServerConfig struct {
	Host          string          `yaml:"host"`
	Port          int             `yaml:"port"`
	Debug         bool            `yaml:"debug"`
	LoggingToFile bool            `yaml:"logging-to-file"`
	LogDir        string          `yaml:"log-dir"`
	ProgramID     string          `yaml:"program-id"`
	Treasury      string          `yaml:"treasury"`
	RateLimit     RateLimitConfig `yaml:"rate-limit"`
	Tasks         TasksConfig     `yaml:"tasks"`
	Faucet        FaucetConfig    `yaml:"faucet"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// LoadServerConfig reads the service settings, applying defaults and env overrides.
// A missing file yields the defaults; a malformed file is an error.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	cfg := ServerConfig{}

	data, errRead := os.ReadFile(configPath)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return ServerConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case !os.IsNotExist(errRead):
		return ServerConfig{}, fmt.Errorf("read config file: %w", errRead)
	}

	if programID := strings.TrimSpace(os.Getenv(EnvProgramID)); programID != "" {
		cfg.ProgramID = programID
	}
	if treasury := strings.TrimSpace(os.Getenv(EnvTreasury)); treasury != "" {
		cfg.Treasury = treasury
	}

	cfg.ProgramID = strings.TrimSpace(cfg.ProgramID)
	if cfg.ProgramID == "" {
		cfg.ProgramID = internalsettings.DefaultProgramID
	}
	cfg.Treasury = strings.TrimSpace(cfg.Treasury)
	if cfg.RateLimit.BidsPerSecond == 0 {
		cfg.RateLimit.BidsPerSecond = internalsettings.DefaultBidsPerSecond
	}
	cfg.RateLimit.Redis.Addr = strings.TrimSpace(cfg.RateLimit.Redis.Addr)
	cfg.RateLimit.Redis.Prefix = strings.TrimSpace(cfg.RateLimit.Redis.Prefix)
	if cfg.RateLimit.Redis.Prefix == "" {
		cfg.RateLimit.Redis.Prefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	if cfg.RateLimit.Redis.DB < 0 {
		cfg.RateLimit.Redis.DB = 0
	}
	if cfg.Tasks.ExpiryScanInterval <= 0 {
		cfg.Tasks.ExpiryScanInterval = internalsettings.DefaultExpiryScanIntervalSeconds * time.Second
	}
	if cfg.Faucet.MaxLamports == 0 {
		cfg.Faucet.MaxLamports = internalsettings.DefaultFaucetMaxLamports
	}
	if strings.TrimSpace(cfg.LogDir) == "" {
		cfg.LogDir = "logs"
	}
	return cfg, nil
}

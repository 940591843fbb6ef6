package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vieilles-charrues/mintauction/internal/config"
	"github.com/vieilles-charrues/mintauction/internal/security"
	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
	"gopkg.in/yaml.v3"
)

// defaultSQLitePath is the default SQLite database file name.
const defaultSQLitePath = "mintauction.db"

// defaultPort is used when neither the config nor the command line sets one.
const defaultPort = 8318

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// buildSQLiteDSN constructs a SQLite DSN with default pragmas.
func buildSQLiteDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=synchronous(NORMAL)",
	}, "&")
}

// resolveDSN returns the configured DSN, or the local SQLite file when none is set.
func resolveDSN(configPath string) (string, error) {
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err == nil {
		return dsn, nil
	}
	if errors.Is(err, config.ErrMissingDatabaseDSN) || !ConfigExists(configPath) {
		return buildSQLiteDSN(defaultSQLitePath), nil
	}
	return "", err
}

// starterConfig mirrors the YAML layout written by WriteConfigFile.
type starterConfig struct {
	Host          string                 `yaml:"host"`
	Port          int                    `yaml:"port"`
	DatabaseDSN   string                 `yaml:"database-dsn"`
	Debug         bool                   `yaml:"debug"`
	LoggingToFile bool                   `yaml:"logging-to-file"`
	ProgramID     string                 `yaml:"program-id"`
	Treasury      string                 `yaml:"treasury"`
	JWT           starterJWT             `yaml:"jwt"`
	RateLimit     config.RateLimitConfig `yaml:"rate-limit"`
	Faucet        config.FaucetConfig    `yaml:"faucet"`
}

type starterJWT struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

// generateJWTSecret returns a fresh random signing secret.
func generateJWTSecret() (string, error) {
	return security.GenerateRandomString(32)
}

// WriteConfigFile writes a starter config. An existing file is left untouched.
func WriteConfigFile(configPath, dsn string, port int) error {
	if ConfigExists(configPath) {
		return fmt.Errorf("config file already exists: %s", configPath)
	}
	if strings.TrimSpace(dsn) == "" {
		dsn = buildSQLiteDSN(defaultSQLitePath)
	}
	if port <= 0 {
		port = defaultPort
	}
	secret, errSecret := generateJWTSecret()
	if errSecret != nil {
		return errSecret
	}

	cfg := starterConfig{
		Port:        port,
		DatabaseDSN: dsn,
		ProgramID:   internalsettings.DefaultProgramID,
		JWT:         starterJWT{Secret: secret, Expiry: "24h"},
		RateLimit: config.RateLimitConfig{
			BidsPerSecond: internalsettings.DefaultBidsPerSecond,
			Redis:         config.RedisConfig{Prefix: internalsettings.DefaultRateLimitRedisPrefix},
		},
		Faucet: config.FaucetConfig{MaxLamports: internalsettings.DefaultFaucetMaxLamports},
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(configPath); dir != "" {
		if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
			return fmt.Errorf("create config dir: %w", errMkdir)
		}
	}
	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}
	return nil
}

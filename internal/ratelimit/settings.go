package ratelimit

import (
	"strings"

	"github.com/vieilles-charrues/mintauction/internal/config"
	internalsettings "github.com/vieilles-charrues/mintauction/internal/settings"
)

// SettingsConfig captures the rate limit settings in effect.
type SettingsConfig struct {
	BidsPerSecond int
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// SettingsFromConfig normalizes the rate-limit section of the service config.
// A zero bid limit falls back to the default; a negative one disables limiting.
func SettingsFromConfig(cfg config.RateLimitConfig) SettingsConfig {
	out := SettingsConfig{
		BidsPerSecond: cfg.BidsPerSecond,
		RedisEnabled:  cfg.Redis.Enabled,
		RedisAddr:     strings.TrimSpace(cfg.Redis.Addr),
		RedisPassword: strings.TrimSpace(cfg.Redis.Password),
		RedisDB:       cfg.Redis.DB,
		RedisPrefix:   strings.TrimSpace(cfg.Redis.Prefix),
	}
	if out.BidsPerSecond == 0 {
		out.BidsPerSecond = internalsettings.DefaultBidsPerSecond
	}
	if out.BidsPerSecond < 0 {
		out.BidsPerSecond = 0
	}
	if out.RedisPrefix == "" {
		out.RedisPrefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	if out.RedisDB < 0 {
		out.RedisDB = 0
	}
	return out
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() SettingsConfig {
	return SettingsFromConfig(config.RateLimitConfig{})
}

// Static returns a provider that always yields cfg.
func Static(cfg SettingsConfig) SettingsProvider {
	return func() SettingsConfig { return cfg }
}

// Resolve returns the limit that applies to scope.
func Resolve(cfg SettingsConfig, scope Scope) Decision {
	if scope == ScopeBid && cfg.BidsPerSecond > 0 {
		return Decision{Limit: cfg.BidsPerSecond, Scope: ScopeBid}
	}
	return Decision{}
}

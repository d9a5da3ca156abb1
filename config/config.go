// Package config loads BotScript's runtime tuning knobs through viper.
// Modeled on conduit's internal/cli/config.Load — defaults set first,
// then overridden by environment, then unmarshalled into a plain struct
// — but BotScript has no project file to discover; everything comes from
// defaults and the process environment (`BOTSCRIPT_*`).
package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config holds the limits and timeouts §5/§4.6 make configurable.
type Config struct {
	MaxCallDepth  int           `mapstructure:"max_call_depth"`
	YieldEvery    int           `mapstructure:"yield_every"`
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
	ScriptTimeout time.Duration `mapstructure:"script_timeout"` // 0 = none
	StoreBackend  string        `mapstructure:"store_backend"`  // "memory" or "redis"
	RedisAddr     string        `mapstructure:"redis_addr"`
}

// Load reads BOTSCRIPT_-prefixed environment variables over the spec's
// stated defaults (§5 default K=1000, §4.6 default 30s action timeout,
// §5 default script timeout none).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("max_call_depth", 256)
	v.SetDefault("yield_every", 1000)
	v.SetDefault("action_timeout", 30*time.Second)
	v.SetDefault("script_timeout", 0)
	v.SetDefault("store_backend", "memory")
	v.SetDefault("redis_addr", "localhost:6379")

	v.SetEnvPrefix("BOTSCRIPT")
	v.AutomaticEnv()
	for _, key := range []string{"max_call_depth", "yield_every", "action_timeout", "script_timeout", "store_backend", "redis_addr"} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.MaxCallDepth <= 0 {
		return fmt.Errorf("max_call_depth must be positive, got %d", cfg.MaxCallDepth)
	}
	if cfg.YieldEvery <= 0 {
		return fmt.Errorf("yield_every must be positive, got %d", cfg.YieldEvery)
	}
	if cfg.StoreBackend != "memory" && cfg.StoreBackend != "redis" {
		return fmt.Errorf("store_backend must be \"memory\" or \"redis\", got %q", cfg.StoreBackend)
	}
	return nil
}

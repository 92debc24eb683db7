// Package config loads the cache's operator-facing configuration: a
// viper.New() instance fed from an optional config.yaml file plus prefixed
// environment variables, unmarshalled into a plain struct.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix this tool reads from
// (RDS_DB_PATH, RDS_REBUILD_EXPIRED_BY_DEFAULT, RDS_SWEEP_INTERVAL, ...).
const EnvPrefix = "RDS"

// Config holds the knobs the coordinator, sweeper, and CLI need.
type Config struct {
	DBPath                  string        `mapstructure:"db_path"`
	RebuildExpiredByDefault bool          `mapstructure:"rebuild_expired_by_default"`
	SweepInterval           time.Duration `mapstructure:"sweep_interval"`
	SweepGracePeriod        time.Duration `mapstructure:"sweep_grace_period"`
	MetricsAddr             string        `mapstructure:"metrics_addr"`
}

// Default returns a Config with the values the CLI falls back to when
// nothing else is set.
func Default() Config {
	return Config{
		DBPath:           "rds.db",
		SweepInterval:    time.Minute,
		SweepGracePeriod: 10 * time.Minute,
		MetricsAddr:      ":9090",
	}
}

// Load layers defaults, an optional config.yaml in the working
// directory, and RDS_-prefixed environment variables, in that order of
// increasing priority.
func Load() (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	}

	prefix := EnvPrefix + "_"
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key, value := pair[0], pair[1]
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		propKey := strings.ToLower(strings.TrimPrefix(key, prefix))
		v.Set(propKey, value)
	}

	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return cfg, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

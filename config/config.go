// Package config loads engine configuration from file and environment.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	DB struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"db"`

	Engine struct {
		FdPenaltyPct         float64 `mapstructure:"fd_penalty_pct"`
		ForeclosureChargePct float64 `mapstructure:"foreclosure_charge_pct"`
		GstPct               float64 `mapstructure:"gst_pct"`
	} `mapstructure:"engine"`

	Scheduler struct {
		Enabled  bool          `mapstructure:"enabled"`
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"scheduler"`
}

// Load reads config.yaml from path (or the working directory when
// empty), with BANK_-prefixed environment variables taking precedence.
// A missing file falls back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("db.path", "./data/bank.db")
	v.SetDefault("engine.fd_penalty_pct", 1.0)
	v.SetDefault("engine.foreclosure_charge_pct", 4.0)
	v.SetDefault("engine.gst_pct", 18.0)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Hour)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

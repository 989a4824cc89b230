package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Alp4ka/planpager"
)

// Config holds the demo settings.
type Config struct {
	Dialect       string `mapstructure:"dialect"`
	DSN           string `mapstructure:"dsn"`
	Seed          bool   `mapstructure:"seed"`
	Limit         int    `mapstructure:"limit"`
	Offset        int    `mapstructure:"offset"`
	Token         string `mapstructure:"token"`
	Desc          bool   `mapstructure:"desc"`
	OutputWalkers string `mapstructure:"output-walkers"`
	LogLevel      string `mapstructure:"log-level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dialect", "sqlite")
	v.SetDefault("dsn", ":memory:")
	v.SetDefault("seed", true)
	v.SetDefault("limit", 3)
	v.SetDefault("offset", 0)
	v.SetDefault("token", "")
	v.SetDefault("desc", false)
	v.SetDefault("output-walkers", "auto")
	v.SetDefault("log-level", "info")
}

// Load reads the configuration with the precedence: flags, PAGERDEMO_*
// environment variables, defaults.
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("pagerdemo", pflag.ContinueOnError)
	fs.String("dialect", "sqlite", "Database dialect: sqlite, mysql or postgres")
	fs.String("dsn", ":memory:", "Database DSN")
	fs.Bool("seed", true, "Create and seed the CMS schema")
	fs.Int("limit", 3, "Page size in users")
	fs.Int("offset", 0, "Page offset in users")
	fs.String("token", "", "Page token printed by a previous run, overrides --offset")
	fs.Bool("desc", false, "Order users by username descending")
	fs.String("output-walkers", "auto", "Query rewrite strategy: auto, true or false")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("PAGERDEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Only explicitly set flags take precedence over the environment.
	fs.Visit(func(f *pflag.Flag) {
		v.Set(f.Name, f.Value.String())
	})

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, err := cfg.Strategy(); err != nil {
		return nil, err
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Strategy maps --output-walkers onto a pagination strategy.
func (c *Config) Strategy() (planpager.Strategy, error) {
	switch strings.ToLower(c.OutputWalkers) {
	case "", "auto":
		return planpager.StrategyAuto, nil
	case "true":
		return planpager.StrategyOutputWalker, nil
	case "false":
		return planpager.StrategyTreeWalker, nil
	default:
		return 0, fmt.Errorf("invalid output-walkers value %q, expected auto, true or false", c.OutputWalkers)
	}
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	return level, nil
}

// Package config loads CLI settings from an optional config file and
// FILTERSPEC_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/filterspec/internal/literal"
	"github.com/roach88/filterspec/internal/logging"
	"github.com/roach88/filterspec/internal/sqlgen"
)

// EnvPrefix prefixes every environment override: FILTERSPEC_DB,
// FILTERSPEC_PAGE_SIZE, FILTERSPEC_LOG_LEVEL, FILTERSPEC_LOG_FORMAT.
const EnvPrefix = "FILTERSPEC"

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "filterspec"

// Config holds the CLI settings.
type Config struct {
	// DB is the sqlite database the page command reads.
	DB string `mapstructure:"db"`

	// Table and Key are the defaults for the page command.
	Table string `mapstructure:"table"`
	Key   string `mapstructure:"key"`

	// PageSize is used when a spec file has no page section.
	PageSize int `mapstructure:"page_size"`

	Log logging.Config `mapstructure:"log"`

	// Macros maps tokens onto static values. Values are decoded as JSON
	// scalars when possible ("42" binds as an integer) and as strings
	// otherwise. Keys are lower-cased by viper.
	Macros map[string]string `mapstructure:"macros"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("db", "filterspec.db")
	v.SetDefault("table", "people")
	v.SetDefault("key", "ID")
	v.SetDefault("page_size", 25)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatConsole)
}

// Load reads path, or ./filterspec.{yaml,json,toml} when path is empty,
// then applies environment overrides. A missing default file is not an
// error; a missing explicit path is.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultFile)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be > 0, got %d", c.PageSize)
	}
	return nil
}

// MacroSet returns the configured macros as static suppliers.
func (c Config) MacroSet() sqlgen.Macros {
	if len(c.Macros) == 0 {
		return nil
	}
	m := make(sqlgen.Macros, len(c.Macros))
	for token, raw := range c.Macros {
		var value any = raw
		if lit, err := literal.Parse([]byte(raw)); err == nil {
			value = lit.Native()
		}
		m[token] = sqlgen.Static(value)
	}
	return m
}

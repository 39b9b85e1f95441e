package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the daemon configuration. Values come from, in order of
// precedence: DEBTBOOK_* environment variables (a .env file is loaded into
// the environment first), the YAML config file, then defaults.
type Config struct {
	HTTP struct {
		Addr            string        `mapstructure:"addr"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	Store struct {
		Driver   string `mapstructure:"driver"`
		DSN      string `mapstructure:"dsn"`
		Database string `mapstructure:"database"`
		// ORM picks the SQL layer for sqlite and postgres: "grove" or
		// "gorm". MySQL always uses gorm.
		ORM string `mapstructure:"orm"`
	} `mapstructure:"store"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Currency      string        `mapstructure:"currency"`
	MaxRetries    int           `mapstructure:"max_retries"`
	PluginTimeout time.Duration `mapstructure:"plugin_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "debtbook.db")
	v.SetDefault("store.database", "debtbook")
	v.SetDefault("store.orm", "grove")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("currency", "inr")
	v.SetDefault("max_retries", 3)
	v.SetDefault("plugin_timeout", 5*time.Second)
}

// loadConfig reads envFile (if present) and configFile. An empty
// configFile looks for debtbook.yaml in the working directory.
func loadConfig(envFile, configFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DEBTBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("debtbook")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres", "mysql", "mongo":
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	switch c.Store.ORM {
	case "", "grove", "gorm":
	default:
		return fmt.Errorf("store.orm: unknown orm %q", c.Store.ORM)
	}
	if c.Store.Driver != "memory" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for %s", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries must not be negative")
	}
	return nil
}

// logLevel parses Log.Level, falling back to info.
func (c *Config) logLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

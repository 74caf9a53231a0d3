// Package config loads relq settings from .relq.yaml, RELQ_* environment
// variables and .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem configuration and .env files are read from.
var AppFs = afero.NewOsFs()

const (
	fileName  = ".relq"
	envPrefix = "RELQ"
)

// Config holds the application configuration.
type Config struct {
	Datasource DatasourceConfig `mapstructure:"datasource"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Debug      bool             `mapstructure:"debug"`
	LogLevel   string           `mapstructure:"log_level"`
	LogFormat  string           `mapstructure:"log_format"`
}

// DatasourceConfig selects the backend. Provider is one of memory, csv,
// postgresql, mysql or sqlite; DSN is the connection string for SQL
// providers and Path the directory of a csv datasource.
type DatasourceConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Path     string `mapstructure:"path"`
	Watch    bool   `mapstructure:"watch"`
}

// EngineConfig tunes query execution.
type EngineConfig struct {
	Parallelism int           `mapstructure:"parallelism"`
	CacheSize   int           `mapstructure:"cache_size"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

var defaults = map[string]any{
	"datasource.provider": "sqlite",
	"datasource.dsn":      "",
	"datasource.path":     ".",
	"datasource.watch":    false,
	"engine.parallelism":  1,
	"engine.cache_size":   256,
	"engine.cache_ttl":    "0s",
	"debug":               false,
	"log_level":           "info",
	"log_format":          "text",
}

// Load reads the configuration from the first .relq.yaml found in the
// working directory, the home directory or ~/.config/relq.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is like Load but reads the given file when path is not empty.
func LoadFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "relq"))
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Datasource.DSN == "" {
		cfg.Datasource.DSN = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, or to ~/.config/relq/.relq.yaml when path
// is empty.
func SaveConfig(cfg *Config, path string) error {
	v := newViper()
	v.Set("datasource.provider", cfg.Datasource.Provider)
	v.Set("datasource.dsn", cfg.Datasource.DSN)
	v.Set("datasource.path", cfg.Datasource.Path)
	v.Set("datasource.watch", cfg.Datasource.Watch)
	v.Set("engine.parallelism", cfg.Engine.Parallelism)
	v.Set("engine.cache_size", cfg.Engine.CacheSize)
	v.Set("engine.cache_ttl", cfg.Engine.CacheTTL.String())
	v.Set("debug", cfg.Debug)
	v.Set("log_level", cfg.LogLevel)
	v.Set("log_format", cfg.LogFormat)

	if path == "" {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".config", "relq", fileName+".yaml")
	}
	if err := AppFs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetFs(AppFs)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// loadDotEnv exports .env without overriding the environment, then
// .env.local over it. Unreadable files are ignored.
func loadDotEnv() {
	applyDotEnv(".env", false)
	applyDotEnv(".env.local", true)
}

func applyDotEnv(name string, overload bool) {
	content, err := afero.ReadFile(AppFs, name)
	if err != nil {
		return
	}
	vars, err := godotenv.Unmarshal(string(content))
	if err != nil {
		return
	}
	for key, value := range vars {
		if _, set := os.LookupEnv(key); set && !overload {
			continue
		}
		_ = os.Setenv(key, value)
	}
}

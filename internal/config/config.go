package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Dataset     DatasetConfig     `yaml:"dataset" mapstructure:"dataset"`
	Standardize StandardizeConfig `yaml:"standardize" mapstructure:"standardize"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the gazetteer database backend. Path is the SQLite
// file; DatabaseURL is the Postgres connection string.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DatasetConfig configures gazetteer builds from Census sources.
type DatasetConfig struct {
	Year      int    `yaml:"year" mapstructure:"year"`
	CacheDir  string `yaml:"cache_dir" mapstructure:"cache_dir"`
	FTP       bool   `yaml:"ftp" mapstructure:"ftp"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// StandardizeConfig configures street name standardization runs.
type StandardizeConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OPENCLEAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", defaultDBPath())
	v.SetDefault("dataset.year", 2024)
	v.SetDefault("dataset.cache_dir", filepath.Join(os.TempDir(), "openclean-geo"))
	v.SetDefault("dataset.ftp", false)
	v.SetDefault("dataset.batch_size", 5000)
	v.SetDefault("standardize.workers", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// defaultDBPath places the SQLite gazetteer under the user's home directory,
// falling back to the working directory when home is unknown.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "zipcodes.db"
	}
	return filepath.Join(home, ".openclean-geo", "zipcodes.db")
}

// Validate checks the fields required by the given run mode. Modes are
// "standardize", "zip" and "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				problems = append(problems, "store.path is required")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required")
			}
		default:
			problems = append(problems, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
	}

	switch mode {
	case "standardize":
		if c.Standardize.Workers < 1 || c.Standardize.Workers > 64 {
			problems = append(problems, "standardize.workers must be between 1 and 64")
		}
	case "zip":
		checkStore()
		if c.Dataset.BatchSize < 1 {
			problems = append(problems, "dataset.batch_size must be > 0")
		}
	case "serve":
		checkStore()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

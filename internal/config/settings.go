package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

const (
	DefaultConfigPath = "./etc/analyst/config.yml"
	envPrefix         = "ANALYST"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Version string `mapstructure:"version"`
	ASNPath string `mapstructure:"asn_path"`
	GeoPath string `mapstructure:"geo_path"`

	DB DatabaseConfig `mapstructure:"db"`

	GeoLite struct {
		LicenseKey     string        `mapstructure:"license_key"`
		UpdateInterval time.Duration `mapstructure:"update_interval"`
		DownloadURL    string        `mapstructure:"download_url"`
	} `mapstructure:"geolite"`

	Server struct {
		Port           int `mapstructure:"port"`
		MaxConnections int `mapstructure:"max_connections"`
		MetricsPort    int `mapstructure:"metrics_port"`
	} `mapstructure:"server"`

	Redis struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"redis"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	FilePath     string `mapstructure:"file_path"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// Load reads the YAML file at path (when present) and applies ANALYST_*
// environment overrides, e.g. ANALYST_DB_FILE_PATH for db.file_path.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return Config{}, fmt.Errorf("config: read %s: %w", path, err)
				}
			}
			log.Warn("Config file not found, falling back to defaults and environment", "path", path)
		} else {
			log.Debug("Config file loaded", "path", v.ConfigFileUsed())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "v1")
	v.SetDefault("asn_path", "./data/geolite/GeoLite2-ASN.mmdb")
	v.SetDefault("geo_path", "./data/geolite/GeoLite2-City.mmdb")
	v.SetDefault("geolite.license_key", "")
	v.SetDefault("geolite.update_interval", "0s")
	v.SetDefault("geolite.download_url", "")
	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.file_path", "./data/analyst.db")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 1)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.max_connections", 0)
	v.SetDefault("server.metrics_port", 0)
	v.SetDefault("redis.url", "")
	v.SetDefault("log.level", "info")
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Version) == "" || strings.Contains(c.Version, "/") {
		errs = append(errs, fmt.Errorf("config: version %q must be a single path segment", c.Version))
	}

	switch c.DB.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.DB.FilePath) == "" {
			errs = append(errs, errors.New("config: db.file_path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DB.DSN) == "" {
			errs = append(errs, errors.New("config: db.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unsupported db.driver %q", c.DB.Driver))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: server.port %d out of range", c.Server.Port))
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("config: server.metrics_port %d out of range", c.Server.MetricsPort))
	}

	if c.GeoLite.UpdateInterval < 0 {
		errs = append(errs, fmt.Errorf("config: geolite.update_interval %s must not be negative", c.GeoLite.UpdateInterval))
	}

	return errors.Join(errs...)
}

// APIPrefix is the path prefix every route is mounted under.
func (c Config) APIPrefix() string {
	return "/api/" + c.Version
}

// GeoLiteAutoUpdate reports whether the periodic GeoLite download should run.
func (c Config) GeoLiteAutoUpdate() bool {
	return strings.TrimSpace(c.GeoLite.LicenseKey) != "" && c.GeoLite.UpdateInterval > 0
}

// LogLevel parses the configured level, defaulting to info.
func (c Config) LogLevel() log.Level {
	level, err := log.ParseLevel(strings.TrimSpace(c.Log.Level))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

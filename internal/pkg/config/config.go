package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	GeoSearch GeoSearchConfig `mapstructure:"geosearch"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// GeoSearchConfig tunes the map search widget and its engine.
type GeoSearchConfig struct {
	RefineOnMapMove bool    `mapstructure:"refine_on_map_move"`
	HitsPerPage     int     `mapstructure:"hits_per_page"`
	FitPadding      int     `mapstructure:"fit_padding"`
	AroundRadius    float64 `mapstructure:"around_radius"` // meters
	CacheTTL        int     `mapstructure:"cache_ttl"`     // seconds
	SearchTimeout   int     `mapstructure:"search_timeout"`
	IdleDebounceMS  int     `mapstructure:"idle_debounce_ms"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "transit")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "bilbomap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("geosearch.refine_on_map_move", true)
	v.SetDefault("geosearch.hits_per_page", 25)
	v.SetDefault("geosearch.fit_padding", 0)
	v.SetDefault("geosearch.around_radius", 5000)
	v.SetDefault("geosearch.cache_ttl", 60)
	v.SetDefault("geosearch.search_timeout", 5)
	v.SetDefault("geosearch.idle_debounce_ms", 250)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: BILBOMAP_DATABASE_HOST → database.host
	v.SetEnvPrefix("BILBOMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.GeoSearch.HitsPerPage <= 0 || c.GeoSearch.HitsPerPage > 1000 {
		errs = append(errs, fmt.Sprintf("geosearch.hits_per_page must be 1-1000, got %d", c.GeoSearch.HitsPerPage))
	}
	if c.GeoSearch.FitPadding < 0 {
		errs = append(errs, "geosearch.fit_padding must not be negative")
	}
	if c.GeoSearch.AroundRadius <= 0 {
		errs = append(errs, "geosearch.around_radius must be positive")
	}
	if c.GeoSearch.CacheTTL < 0 {
		errs = append(errs, "geosearch.cache_ttl must not be negative")
	}
	if c.GeoSearch.SearchTimeout <= 0 {
		errs = append(errs, "geosearch.search_timeout must be positive")
	}
	if c.GeoSearch.IdleDebounceMS <= 0 {
		errs = append(errs, "geosearch.idle_debounce_ms must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

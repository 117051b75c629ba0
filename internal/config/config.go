package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Detection DetectionConfig `mapstructure:"detection"`
	Places    PlacesConfig    `mapstructure:"places"`
	Geocode   GeocodeConfig   `mapstructure:"geocode"`
	History   HistoryConfig   `mapstructure:"history"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Keycloak  KeycloakConfig  `mapstructure:"keycloak"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	StaticDir       string        `mapstructure:"static_dir"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
	LogCap  int    `mapstructure:"log_cap"`
}

type TrackingConfig struct {
	DefaultTarget       string        `mapstructure:"default_target"`
	TargetURLTemplate   string        `mapstructure:"target_url_template"`
	ScrapeInterval      time.Duration `mapstructure:"scrape_interval"`
	ReadTimeout         time.Duration `mapstructure:"read_timeout"`
	NavigateTimeout     time.Duration `mapstructure:"navigate_timeout"`
	TimeoutThreshold    int           `mapstructure:"timeout_threshold"`
	SessionCloseTimeout time.Duration `mapstructure:"session_close_timeout"`
	RestartRetryDelay   time.Duration `mapstructure:"restart_retry_delay"`
}

// DetectionConfig is read on every cycle. A speed threshold <= 0 disables
// the speed predicates.
type DetectionConfig struct {
	AltitudeThreshold float64       `mapstructure:"altitude_threshold"`
	SpeedThreshold    float64       `mapstructure:"speed_threshold"`
	OfflineTimeout    time.Duration `mapstructure:"offline_timeout"`
}

type PlacesConfig struct {
	MatchRadiusM float64 `mapstructure:"match_radius_m"`
}

type GeocodeConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Language  string        `mapstructure:"language"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size"`
	Precision int           `mapstructure:"precision"`
}

type HistoryConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	LookbackDays     int           `mapstructure:"lookback_days"`
	URLTemplate      string        `mapstructure:"url_template"`
	RateLimitBackoff time.Duration `mapstructure:"rate_limit_backoff"`
	RequestDelay     time.Duration `mapstructure:"request_delay"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type BrowserConfig struct {
	ExecPath       string        `mapstructure:"exec_path"`
	Headless       bool          `mapstructure:"headless"`
	NoSandbox      bool          `mapstructure:"no_sandbox"`
	UserAgent      string        `mapstructure:"user_agent"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Channel   string `mapstructure:"channel"`
	LatestKey string `mapstructure:"latest_key"`
}

type KeycloakConfig struct {
	URL          string `mapstructure:"url"`
	Realm        string `mapstructure:"realm"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// Enabled reports whether mutating routes are protected by token introspection
func (k KeycloakConfig) Enabled() bool {
	return k.URL != ""
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("FLIGHTWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Load config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshal()
}

func unmarshal() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("server.static_dir", "public")
	viper.SetDefault("server.cors_origins", []string{"*"})

	// Storage defaults
	viper.SetDefault("storage.data_dir", "data")
	viper.SetDefault("storage.log_cap", 5000)

	// Tracking defaults
	viper.SetDefault("tracking.default_target", "3e0fe9")
	viper.SetDefault("tracking.target_url_template", "https://globe.adsbexchange.com/?icao=%s")
	viper.SetDefault("tracking.scrape_interval", "3s")
	viper.SetDefault("tracking.read_timeout", "45s")
	viper.SetDefault("tracking.navigate_timeout", "45s")
	viper.SetDefault("tracking.timeout_threshold", 3)
	viper.SetDefault("tracking.session_close_timeout", "10s")
	viper.SetDefault("tracking.restart_retry_delay", "15s")

	// Detection defaults
	viper.SetDefault("detection.altitude_threshold", 100)
	viper.SetDefault("detection.speed_threshold", 0)
	viper.SetDefault("detection.offline_timeout", "60s")

	viper.SetDefault("places.match_radius_m", 1500)

	// Geocode defaults
	viper.SetDefault("geocode.enabled", true)
	viper.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	viper.SetDefault("geocode.user_agent", "flightwatch/1.0")
	viper.SetDefault("geocode.timeout", "10s")
	viper.SetDefault("geocode.cache_ttl", "24h")
	viper.SetDefault("geocode.cache_size", 1000)
	viper.SetDefault("geocode.precision", 3)

	// History defaults
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.lookback_days", 14)
	viper.SetDefault("history.url_template", "https://globe.adsbexchange.com/globe_history/%Y/%m/%d/traces/{suffix}/trace_full_{hex}.json")
	viper.SetDefault("history.rate_limit_backoff", "30s")
	viper.SetDefault("history.request_delay", "2s")
	viper.SetDefault("history.timeout", "60s")

	// Browser defaults
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.no_sandbox", true)
	viper.SetDefault("browser.default_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.postgres.port", 5432)
	viper.SetDefault("database.postgres.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.channel", "flightwatch:events")
	viper.SetDefault("redis.latest_key", "flightwatch:latest")
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", config.Server.Port)
	}
	if config.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir is required")
	}
	if config.Storage.LogCap <= 0 {
		return fmt.Errorf("storage log_cap must be positive")
	}
	if config.Tracking.ScrapeInterval <= 0 {
		return fmt.Errorf("tracking scrape_interval must be positive")
	}
	if config.Tracking.ReadTimeout <= 0 {
		return fmt.Errorf("tracking read_timeout must be positive")
	}
	if config.Tracking.TimeoutThreshold < 1 {
		return fmt.Errorf("tracking timeout_threshold must be at least 1")
	}
	if !strings.Contains(config.Tracking.TargetURLTemplate, "%s") {
		return fmt.Errorf("tracking target_url_template must contain %%s")
	}
	if config.Detection.OfflineTimeout <= 0 {
		return fmt.Errorf("detection offline_timeout must be positive")
	}
	if config.Places.MatchRadiusM <= 0 {
		return fmt.Errorf("places match_radius_m must be positive")
	}
	if config.Geocode.Precision < 0 || config.Geocode.Precision > 7 {
		return fmt.Errorf("geocode precision must be between 0 and 7")
	}
	if config.Geocode.CacheSize <= 0 {
		return fmt.Errorf("geocode cache_size must be positive")
	}
	if config.History.LookbackDays < 1 {
		return fmt.Errorf("history lookback_days must be at least 1")
	}
	if config.Database.Enabled && config.Database.Postgres.Host == "" {
		return fmt.Errorf("postgres host is required when the database is enabled")
	}
	if config.Keycloak.Enabled() && (config.Keycloak.Realm == "" || config.Keycloak.ClientID == "") {
		return fmt.Errorf("keycloak realm and client_id are required when keycloak url is set")
	}
	return nil
}

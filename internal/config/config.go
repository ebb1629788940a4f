// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	DB      DBConfig      `mapstructure:"db"`
	Assets  AssetsConfig  `mapstructure:"assets"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features and the run log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// CrawlerConfig governs the crawl loop and the page scraper.
type CrawlerConfig struct {
	StartURL       string `mapstructure:"start_url"`
	UserAgent      string `mapstructure:"user_agent"`
	PublicationDay string `mapstructure:"publication_day"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DownloadsDir   string `mapstructure:"downloads_dir"`
	ResourcesDir   string `mapstructure:"resources_dir"`
	MaxEpisodes    int    `mapstructure:"max_episodes"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// AssetsConfig selects and parameterizes the asset store backend.
type AssetsConfig struct {
	Backend  string `mapstructure:"backend"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BRAGGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("crawler.start_url", "https://www.bbc.co.uk/programmes/p0054578")
	v.SetDefault("crawler.user_agent", "shiny-armadillo/0.1.0")
	v.SetDefault("crawler.publication_day", "Thursday")
	v.SetDefault("crawler.timeout_seconds", 30)
	v.SetDefault("crawler.max_episodes", 3)
	v.SetDefault("assets.backend", "local")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.StartURL == "" {
		return fmt.Errorf("crawler.start_url must be set")
	}
	if c.Crawler.UserAgent == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if _, err := c.PublicationWeekday(); err != nil {
		return err
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	// Zero disables the per-run episode cap.
	if c.Crawler.MaxEpisodes < 0 {
		return fmt.Errorf("crawler.max_episodes must be >= 0")
	}
	if c.Crawler.DownloadsDir == "" {
		return fmt.Errorf("crawler.downloads_dir must be set")
	}
	if c.Crawler.ResourcesDir == "" {
		return fmt.Errorf("crawler.resources_dir must be set")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	switch c.Assets.Backend {
	case "local":
		if c.Assets.BaseDir == "" {
			return fmt.Errorf("assets.base_dir must be set for the local backend")
		}
	case "s3", "gcs":
		if c.Assets.Bucket == "" {
			return fmt.Errorf("assets.bucket must be set for the %s backend", c.Assets.Backend)
		}
	default:
		return fmt.Errorf("unknown assets.backend %q", c.Assets.Backend)
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	return nil
}

// PublicationWeekday parses crawler.publication_day into a time.Weekday.
func (c Config) PublicationWeekday() (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), c.Crawler.PublicationDay) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("crawler.publication_day %q is not a weekday name", c.Crawler.PublicationDay)
}

// RequestTimeout converts the timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

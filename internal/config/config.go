package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/polydash/internal/alert"
	"github.com/newthinker/polydash/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
	Ticker  TickerConfig  `mapstructure:"ticker" yaml:"ticker"`
	Alerts  AlertsConfig  `mapstructure:"alerts" yaml:"alerts"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// APIConfig describes the bot backend
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	RateLimit  float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst      int           `mapstructure:"burst" yaml:"burst"`
}

type PollConfig struct {
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	SignalsLimit int           `mapstructure:"signals_limit" yaml:"signals_limit"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host" yaml:"host"`
	Port   int    `mapstructure:"port" yaml:"port"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// ExportConfig controls file exports and their archive
type ExportConfig struct {
	Dir              string        `mapstructure:"dir" yaml:"dir"`
	Schedule         string        `mapstructure:"schedule" yaml:"schedule"`
	FullSignalsLimit int           `mapstructure:"full_signals_limit" yaml:"full_signals_limit"`
	Archive          ArchiveConfig `mapstructure:"archive" yaml:"archive"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type" yaml:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path" yaml:"path"` // For localfs
	S3   S3Config `mapstructure:"s3" yaml:"s3"`     // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// TickerConfig holds the BTC spot price source.
type TickerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Symbol  string `mapstructure:"symbol" yaml:"symbol"`
}

// AlertsConfig holds consensus alert settings.
type AlertsConfig struct {
	Enabled   bool                      `mapstructure:"enabled" yaml:"enabled"`
	Cooldown  time.Duration             `mapstructure:"cooldown" yaml:"cooldown"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers" yaml:"notifiers"`
	Rules     []alert.Rule              `mapstructure:"rules" yaml:"rules"`
	History   int                       `mapstructure:"history" yaml:"history"`
}

type NotifierConfig struct {
	Enabled  bool              `mapstructure:"enabled" yaml:"enabled"`
	BotToken string            `mapstructure:"bot_token" yaml:"bot_token"`
	ChatID   string            `mapstructure:"chat_id" yaml:"chat_id"`
	URL      string            `mapstructure:"url" yaml:"url"`
	Headers  map[string]string `mapstructure:"headers" yaml:"headers"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// Load reads configuration from file. An empty path loads defaults plus
// environment overrides only.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Defaults())

	// POLYDASH_API_BASE_URL overrides api.base_url
	v.SetEnvPrefix("polydash")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every default so env overrides work without a file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.api_key", d.API.APIKey)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.max_retries", d.API.MaxRetries)
	v.SetDefault("api.rate_limit", d.API.RateLimit)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.signals_limit", d.Poll.SignalsLimit)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.schedule", d.Export.Schedule)
	v.SetDefault("export.full_signals_limit", d.Export.FullSignalsLimit)
	v.SetDefault("export.archive.type", d.Export.Archive.Type)
	v.SetDefault("export.archive.path", d.Export.Archive.Path)
	v.SetDefault("ticker.enabled", d.Ticker.Enabled)
	v.SetDefault("ticker.base_url", d.Ticker.BaseURL)
	v.SetDefault("ticker.symbol", d.Ticker.Symbol)
	v.SetDefault("alerts.enabled", d.Alerts.Enabled)
	v.SetDefault("alerts.cooldown", d.Alerts.Cooldown)
	v.SetDefault("alerts.history", d.Alerts.History)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("log.file", d.Log.File)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "http://localhost:8000",
			Timeout:    25 * time.Second,
			MaxRetries: 2,
			RateLimit:  10,
			Burst:      20,
		},
		Poll: PollConfig{
			Interval:     30 * time.Second,
			SignalsLimit: 20,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Second,
		},
		Export: ExportConfig{
			Dir:              ".",
			FullSignalsLimit: 1000,
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "./archive",
			},
		},
		Ticker: TickerConfig{
			Enabled: true,
			BaseURL: "https://api.binance.com",
			Symbol:  "BTCUSDT",
		},
		Alerts: AlertsConfig{
			Enabled:  false,
			Cooldown: 15 * time.Minute,
			History:  200,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("api.base_url is required"))
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL))
	}
	if c.API.MaxRetries < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api.max_retries cannot be negative, got %d", c.API.MaxRetries))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Poll.Interval < time.Second {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("poll.interval must be at least 1s, got %s", c.Poll.Interval))
	}
	// A request must finish before the next scheduled poll
	if c.API.Timeout <= 0 || c.API.Timeout > c.Poll.Interval {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api.timeout must be in (0, poll.interval], got %s", c.API.Timeout))
	}

	switch c.Export.Archive.Type {
	case "", "localfs":
	case "s3":
		if c.Export.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("export.archive.s3.bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type: %s", c.Export.Archive.Type))
	}

	if c.Alerts.Enabled {
		for name, n := range c.Alerts.Notifiers {
			if !n.Enabled {
				continue
			}
			switch name {
			case "telegram":
				if n.BotToken == "" || n.ChatID == "" {
					return core.WrapError(core.ErrConfigMissing,
						fmt.Errorf("telegram bot_token and chat_id required"))
				}
			case "webhook":
				if n.URL == "" {
					return core.WrapError(core.ErrConfigMissing,
						fmt.Errorf("webhook url required"))
				}
			}
		}
		for i := range c.Alerts.Rules {
			if err := c.Alerts.Rules[i].Validate(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Redacted returns a copy safe for display with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.API.APIKey = mask(c.API.APIKey)
	out.Server.APIKey = mask(c.Server.APIKey)
	out.Export.Archive.S3.AccessKey = mask(c.Export.Archive.S3.AccessKey)
	out.Export.Archive.S3.SecretKey = mask(c.Export.Archive.S3.SecretKey)
	if c.Alerts.Notifiers != nil {
		out.Alerts.Notifiers = make(map[string]NotifierConfig, len(c.Alerts.Notifiers))
		for name, n := range c.Alerts.Notifiers {
			n.BotToken = mask(n.BotToken)
			out.Alerts.Notifiers[name] = n
		}
	}
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

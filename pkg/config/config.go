package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSourceURL is the AAPL daily price CSV the dashboard was built around.
const DefaultSourceURL = "https://raw.githubusercontent.com/amikoshimrah/Apple-Stock-Forecast/main/AAPL.csv"

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	History struct {
		Backend   string        `yaml:"backend"` // http or clickhouse
		SourceURL string        `yaml:"source_url"`
		Symbol    string        `yaml:"symbol"`
		MinDate   string        `yaml:"min_date"`
		Timeout   time.Duration `yaml:"timeout"`
		TailRows  int           `yaml:"tail_rows"`
	} `yaml:"history"`
	// Models maps a display name to an artifact location (file path or http(s) URL).
	Models   map[string]string `yaml:"models"`
	Forecast struct {
		MinHorizon     int     `yaml:"min_horizon"`
		MaxHorizon     int     `yaml:"max_horizon"`
		DefaultHorizon int     `yaml:"default_horizon"`
		MonthEndRule   string  `yaml:"month_end_rule"`
		Confidence     float64 `yaml:"confidence"`
		RateLimit      struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"forecast"`
	Cache struct {
		HistoryTTL time.Duration `yaml:"history_ttl"`
		Redis      struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		Table        string        `yaml:"table"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		MaxAttempts  int           `yaml:"max_attempts"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"kafka"`
	Refresh struct {
		Cron string `yaml:"cron"`
	} `yaml:"refresh"`
	Live struct {
		Enabled      bool          `yaml:"enabled"`
		PingInterval time.Duration `yaml:"ping_interval"`
	} `yaml:"live"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("HISTORY_SOURCE_URL"); v != "" {
		c.History.SourceURL = v
	}
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		c.History.Backend = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Cache.Redis.Port = p
			}
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FORECAST_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.History.Backend == "" {
		c.History.Backend = "http"
	}
	if c.History.SourceURL == "" {
		c.History.SourceURL = DefaultSourceURL
	}
	if c.History.Symbol == "" {
		c.History.Symbol = "AAPL"
	}
	if c.History.MinDate == "" {
		c.History.MinDate = "2009-01-01"
	}
	if c.History.Timeout == 0 {
		c.History.Timeout = 30 * time.Second
	}
	if c.History.TailRows == 0 {
		c.History.TailRows = 50
	}
	if c.Models == nil {
		c.Models = map[string]string{
			"ARIMA":  "models/arima_model_aapl.json",
			"SARIMA": "models/sarima_model_aapl.json",
		}
	}
	if c.Forecast.MinHorizon == 0 {
		c.Forecast.MinHorizon = 1
	}
	if c.Forecast.MaxHorizon == 0 {
		c.Forecast.MaxHorizon = 36
	}
	if c.Forecast.DefaultHorizon == 0 {
		c.Forecast.DefaultHorizon = 12
	}
	if c.Forecast.Confidence == 0 {
		c.Forecast.Confidence = 0.95
	}
	if c.Forecast.RateLimit.Capacity == 0 {
		c.Forecast.RateLimit.Capacity = 10
	}
	if c.Forecast.RateLimit.RefillPerSec == 0 {
		c.Forecast.RateLimit.RefillPerSec = 2
	}
	if c.Cache.Redis.Host == "" {
		c.Cache.Redis.Host = "localhost"
	}
	if c.Cache.Redis.Port == 0 {
		c.Cache.Redis.Port = 6379
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "stockcast"
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "daily_prices"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "stockcast.forecasts"
	}
	if c.Live.PingInterval == 0 {
		c.Live.PingInterval = 30 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.History.Backend != "http" && c.History.Backend != "clickhouse" {
		return fmt.Errorf("history.backend must be 'http' or 'clickhouse', got '%s'", c.History.Backend)
	}
	if c.History.Backend == "http" && c.History.SourceURL == "" {
		return fmt.Errorf("history.source_url is required for the http backend")
	}
	if c.History.Backend == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for the clickhouse backend")
	}
	if _, err := time.Parse("2006-01-02", c.History.MinDate); err != nil {
		return fmt.Errorf("history.min_date must be YYYY-MM-DD: %w", err)
	}
	if c.Forecast.MinHorizon < 1 || c.Forecast.MaxHorizon < c.Forecast.MinHorizon {
		return fmt.Errorf("forecast horizon bounds invalid: [%d, %d]", c.Forecast.MinHorizon, c.Forecast.MaxHorizon)
	}
	if c.Forecast.DefaultHorizon < c.Forecast.MinHorizon || c.Forecast.DefaultHorizon > c.Forecast.MaxHorizon {
		return fmt.Errorf("forecast.default_horizon %d outside [%d, %d]", c.Forecast.DefaultHorizon, c.Forecast.MinHorizon, c.Forecast.MaxHorizon)
	}
	switch c.Forecast.MonthEndRule {
	case "", "rollforward", "next_month":
	default:
		return fmt.Errorf("forecast.month_end_rule must be 'rollforward' or 'next_month', got '%s'", c.Forecast.MonthEndRule)
	}
	if c.Forecast.Confidence <= 0 || c.Forecast.Confidence >= 1 {
		return fmt.Errorf("forecast.confidence must be in (0, 1)")
	}
	for name, loc := range c.Models {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(loc) == "" {
			return fmt.Errorf("models: empty name or location")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// MinDate returns the parsed history floor date.
func (c *Config) MinDate() time.Time {
	t, _ := time.Parse("2006-01-02", c.History.MinDate)
	return t
}

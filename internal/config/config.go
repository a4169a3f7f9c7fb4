// Package config содержит логику чтения конфигурации сервиса статистики.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса статистики.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	FeedAddress    string `env:"FEED_ADDRESS"`
	RedisAddress   string `env:"REDIS_ADDR"`
	TerminalSecret string `env:"TERMINAL_SECRET"`

	VenueTimezone    string        `env:"VENUE_TIMEZONE" envDefault:"Local"`
	RolloverHours    int           `env:"ROLLOVER_HOURS" envDefault:"6"`
	CurfewHour       int           `env:"CURFEW_HOUR" envDefault:"2"`
	CampWindowHour   int           `env:"CAMP_WINDOW_HOUR" envDefault:"5"`
	TrendWindowHours int           `env:"TREND_WINDOW_HOURS" envDefault:"24"`
	MaxTrendHours    int           `env:"MAX_TREND_HOURS" envDefault:"744"`
	ResolutionHours  int           `env:"RESOLUTION_HOURS" envDefault:"1"`
	RefreshInterval  time.Duration `env:"REFRESH_INTERVAL" envDefault:"2s"`
	FeedInterval     time.Duration `env:"FEED_INTERVAL" envDefault:"5s"`
	FeedLookback     time.Duration `env:"FEED_LOOKBACK" envDefault:"6h"`
	MaskEmptyHours   bool          `env:"MASK_EMPTY_HOURS" envDefault:"false"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envFeedAddress := cfg.FeedAddress
	envRedisAddress := cfg.RedisAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.FeedAddress, "f", "", "upstream sale feed address")
	flag.StringVar(&cfg.RedisAddress, "c", "", "redis address for dashboard cache")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envFeedAddress != "" {
		cfg.FeedAddress = envFeedAddress
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет диапазоны числовых параметров.
func (c *Config) Validate() error {
	var errs []error

	if c.RolloverHours < 0 || c.RolloverHours > 23 {
		errs = append(errs, fmt.Errorf("ROLLOVER_HOURS must be in [0, 23], got %d", c.RolloverHours))
	}
	if c.CurfewHour < 0 || c.CurfewHour > 23 {
		errs = append(errs, fmt.Errorf("CURFEW_HOUR must be in [0, 23], got %d", c.CurfewHour))
	}
	if c.CampWindowHour < 0 || c.CampWindowHour > 23 {
		errs = append(errs, fmt.Errorf("CAMP_WINDOW_HOUR must be in [0, 23], got %d", c.CampWindowHour))
	}
	if c.TrendWindowHours <= 0 {
		errs = append(errs, fmt.Errorf("TREND_WINDOW_HOURS must be positive, got %d", c.TrendWindowHours))
	}
	if c.MaxTrendHours < c.TrendWindowHours {
		errs = append(errs, fmt.Errorf("MAX_TREND_HOURS must be at least TREND_WINDOW_HOURS, got %d", c.MaxTrendHours))
	}
	if c.ResolutionHours <= 0 || 24%c.ResolutionHours != 0 {
		errs = append(errs, fmt.Errorf("RESOLUTION_HOURS must divide 24, got %d", c.ResolutionHours))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval))
	}
	if c.FeedInterval <= 0 {
		errs = append(errs, fmt.Errorf("FEED_INTERVAL must be positive, got %s", c.FeedInterval))
	}
	if c.FeedLookback < 0 {
		errs = append(errs, fmt.Errorf("FEED_LOOKBACK must not be negative, got %s", c.FeedLookback))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location возвращает часовой пояс площадки.
func (c *Config) Location() (*time.Location, error) {
	if c.VenueTimezone == "" || c.VenueTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.VenueTimezone)
	if err != nil {
		return nil, fmt.Errorf("load VENUE_TIMEZONE: %w", err)
	}
	return loc, nil
}

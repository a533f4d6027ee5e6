package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vietddude/fanstats/internal/collector"
	"github.com/vietddude/fanstats/internal/infra/api/admission"
	"github.com/vietddude/fanstats/internal/infra/api/retry"
	redisclient "github.com/vietddude/fanstats/internal/infra/redis"
	"github.com/vietddude/fanstats/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	API       APIConfig          `yaml:"api"`
	Admission admission.Config   `yaml:"admission"`
	Retry     RetryConfig        `yaml:"retry"`
	Collector collector.Config   `yaml:"collector"`
	Sink      SinkConfig         `yaml:"sink"`
	Database  postgres.Config    `yaml:"database"`
	Redis     redisclient.Config `yaml:"redis"`
	Server    ServerConfig       `yaml:"server"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// APIConfig holds Chartmetric API settings.
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	RefreshToken string        `yaml:"refresh_token"`
	Timeout      time.Duration `yaml:"timeout"` // per attempt
}

// RetryConfig holds retry settings. A nil MaxAttempts means retry forever.
type RetryConfig struct {
	MaxAttempts       *int          `yaml:"max_attempts"`
	BaseInterval      time.Duration `yaml:"base_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	MaxInterval       time.Duration `yaml:"max_interval"`
	RetryableStatuses []int         `yaml:"retryable_statuses"`
	StrictErrors      bool          `yaml:"strict_errors"`
}

// SinkKind selects where collected rows go.
type SinkKind string

const (
	SinkCSV      SinkKind = "csv"
	SinkPostgres SinkKind = "postgres"
	SinkMemory   SinkKind = "memory"
)

// SinkConfig holds result sink settings.
type SinkConfig struct {
	Kind        SinkKind `yaml:"kind"`
	ArtistsFile string   `yaml:"artists_file"`
	TracksFile  string   `yaml:"tracks_file"`
}

// ServerConfig holds HTTP server settings. Port 0 disables the server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ToPolicy builds the retry policy described by the config.
func (c RetryConfig) ToPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	if c.MaxAttempts != nil {
		p.MaxAttempts = *c.MaxAttempts
	}
	if c.BaseInterval > 0 {
		p.BaseInterval = c.BaseInterval
	}
	if c.BackoffMultiplier > 0 {
		p.BackoffMultiplier = c.BackoffMultiplier
	}
	p.MaxInterval = c.MaxInterval
	if len(c.RetryableStatuses) > 0 {
		p.RetryableStatuses = make(map[int]bool, len(c.RetryableStatuses))
		for _, code := range c.RetryableStatuses {
			p.RetryableStatuses[code] = true
		}
	}
	p.StrictErrors = c.StrictErrors
	return p
}

// Validate reports the first invalid setting.
func (c *AppConfig) Validate() error {
	if c.API.RefreshToken == "" {
		return errors.New("api.refresh_token is required (or set CHARTMETRIC_REFRESH_TOKEN)")
	}
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("invalid api.base_url: %w", err)
	}
	if c.Admission.Rate <= 0 {
		return fmt.Errorf("admission.rate must be positive, got %v", c.Admission.Rate)
	}
	if c.Admission.Capacity < 1 {
		return fmt.Errorf("admission.capacity must be at least 1, got %v", c.Admission.Capacity)
	}
	switch c.Admission.Strategy {
	case admission.StrategyBucket, admission.StrategyRate:
	default:
		return fmt.Errorf("unknown admission.strategy %q", c.Admission.Strategy)
	}
	if c.Retry.MaxAttempts != nil && *c.Retry.MaxAttempts < retry.Unbounded {
		return fmt.Errorf("retry.max_attempts must be -1 or more, got %d", *c.Retry.MaxAttempts)
	}
	if m := c.Retry.BackoffMultiplier; m != 0 && m < 1 {
		return fmt.Errorf("retry.backoff_multiplier must be at least 1, got %v", m)
	}
	if c.Retry.BaseInterval < 0 || c.Retry.MaxInterval < 0 {
		return errors.New("retry.base_interval and retry.max_interval must not be negative")
	}
	if c.Collector.PageSize <= 0 || c.Collector.ArtistsNeeded < 0 {
		return errors.New("collector.page_size must be positive and collector.artists_needed non-negative")
	}
	switch c.Sink.Kind {
	case SinkCSV:
		if c.Sink.ArtistsFile == "" || c.Sink.TracksFile == "" {
			return errors.New("sink.artists_file and sink.tracks_file are required for csv")
		}
	case SinkPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres sink")
		}
	case SinkMemory:
	default:
		return fmt.Errorf("unknown sink.kind %q", c.Sink.Kind)
	}
	if c.Server.Port < 0 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

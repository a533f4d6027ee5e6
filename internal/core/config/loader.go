package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/fanstats/internal/chartmetric"
	"github.com/vietddude/fanstats/internal/collector"
	"github.com/vietddude/fanstats/internal/infra/api/admission"
)

// RefreshTokenEnv is consulted when the config has no refresh token.
const RefreshTokenEnv = "CHARTMETRIC_REFRESH_TOKEN"

// Load reads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = chartmetric.DefaultBaseURL
	}
	if cfg.API.RefreshToken == "" {
		cfg.API.RefreshToken = os.Getenv(RefreshTokenEnv)
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}

	if cfg.Admission.Strategy == "" {
		cfg.Admission.Strategy = admission.DefaultConfig.Strategy
	}
	if cfg.Admission.Rate == 0 {
		cfg.Admission.Rate = admission.DefaultConfig.Rate
	}
	if cfg.Admission.Capacity == 0 {
		cfg.Admission.Capacity = admission.DefaultConfig.Capacity
	}
	if cfg.Admission.PollInterval == 0 {
		cfg.Admission.PollInterval = admission.DefaultConfig.PollInterval
	}

	if cfg.Collector.ArtistsNeeded == 0 {
		cfg.Collector.ArtistsNeeded = collector.DefaultConfig.ArtistsNeeded
	}
	if cfg.Collector.PageSize == 0 {
		cfg.Collector.PageSize = collector.DefaultConfig.PageSize
	}
	if cfg.Collector.QueryType == "" {
		cfg.Collector.QueryType = collector.DefaultConfig.QueryType
	}
	if cfg.Collector.Min == 0 && cfg.Collector.Max == 0 {
		cfg.Collector.Min = collector.DefaultConfig.Min
		cfg.Collector.Max = collector.DefaultConfig.Max
	}
	if cfg.Collector.Workers == 0 {
		cfg.Collector.Workers = collector.DefaultConfig.Workers
	}

	if cfg.Sink.Kind == "" {
		cfg.Sink.Kind = SinkCSV
	}
	if cfg.Sink.ArtistsFile == "" {
		cfg.Sink.ArtistsFile = "data_table.csv"
	}
	if cfg.Sink.TracksFile == "" {
		cfg.Sink.TracksFile = "tracks.csv"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

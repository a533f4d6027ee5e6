// Package api provides a rate-limited, retrying client for a JSON HTTP API.
//
// Every logical call passes through:
//   - an Admitter that caps the dispatch rate (one permit per logical call)
//   - a retry Executor that classifies each attempt and backs off
//   - a Transport that performs the HTTP exchange
//
// # Quick Start
//
//	import "github.com/vietddude/fanstats/internal/infra/api"
//
//	client, tr, err := api.New(api.Config{
//	    BaseURL:   "https://api.chartmetric.com/api",
//	    Timeout:   30 * time.Second,
//	    Admission: admission.DefaultConfig,
//	}, retry.DefaultPolicy())
//
//	defer tr.Close()
//
//	payload, err := client.Do(ctx, api.Get("artist_meta", "artist/2000", nil))
//
// # Package Structure
//
//   - admission/ - token bucket and x/time/rate admitters
//   - retry/     - policy, outcome classification, executor
//   - transport/ - HTTP transport with closed error kinds, upstream monitor
//
// Commonly used types are re-exported at the root level.
package api

import (
	"fmt"
	"time"

	"github.com/vietddude/fanstats/internal/infra/api/admission"
	"github.com/vietddude/fanstats/internal/infra/api/retry"
	"github.com/vietddude/fanstats/internal/infra/api/transport"
)

// FailedRequest is the error returned when a logical call fails.
type FailedRequest = retry.FailedRequest

// ConfigurationError is returned for requests that cannot be sent as built.
type ConfigurationError = retry.ConfigurationError

// Policy defines the retry behavior.
type Policy = retry.Policy

// Admitter gates the dispatch rate.
type Admitter = admission.Admitter

// Transport sends one HTTP request.
type Transport = transport.Transport

// Config holds API client settings.
type Config struct {
	BaseURL   string           `yaml:"base_url"`
	Timeout   time.Duration    `yaml:"timeout"`
	Admission admission.Config `yaml:"admission"`
}

// New builds a client over an HTTP transport using the configured admitter.
func New(cfg Config, policy retry.Policy, opts ...Option) (*Client, *transport.HTTPTransport, error) {
	admitter, err := admission.New(cfg.Admission)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create admitter: %w", err)
	}
	tr := transport.NewHTTPTransport(cfg.Timeout)
	return NewClient(cfg.BaseURL, tr, admitter, policy, opts...), tr, nil
}

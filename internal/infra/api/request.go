package api

import (
	"net/http"
	"net/url"
	"time"
)

// Call describes one logical API call relative to the client's base URL.
type Call struct {
	// Endpoint labels the call in logs and metrics (e.g. "artist_meta").
	Endpoint string

	Method string
	Path   string
	Query  url.Values

	// Body is JSON-encoded when non-nil.
	Body any

	// Anonymous skips the client's header source.
	Anonymous bool

	// Timeout overrides the transport timeout for each attempt.
	Timeout time.Duration
}

// Get creates a GET call.
func Get(endpoint, path string, query url.Values) Call {
	return Call{
		Endpoint: endpoint,
		Method:   http.MethodGet,
		Path:     path,
		Query:    query,
	}
}

// Post creates a POST call with a JSON body.
func Post(endpoint, path string, body any) Call {
	return Call{
		Endpoint: endpoint,
		Method:   http.MethodPost,
		Path:     path,
		Body:     body,
	}
}

// WithoutAuth marks the call as anonymous.
func (c Call) WithoutAuth() Call {
	c.Anonymous = true
	return c
}

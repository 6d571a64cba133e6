// Package transport posts encoded carrier requests and returns raw replies.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tournevent/shipgate/pkg/shipper"
)

const (
	ContentTypeXML  = "text/xml; charset=utf-8"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Poster sends one request body and returns the raw reply.
type Poster interface {
	Post(ctx context.Context, url, contentType string, body []byte) ([]byte, error)
}

// Endpoint is a carrier URL pair selected by the test-mode flag.
type Endpoint struct {
	Test string
	Live string
}

// URL returns the test or live URL.
func (e Endpoint) URL(test bool) string {
	if test {
		return e.Test
	}
	return e.Live
}

// HTTPPoster is the production Poster over net/http.
type HTTPPoster struct {
	httpClient *http.Client
	userAgent  string
}

// HTTPPosterConfig holds configuration for HTTPPoster.
type HTTPPosterConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// NewHTTPPoster creates a Poster for production use.
func NewHTTPPoster(cfg HTTPPosterConfig) *HTTPPoster {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPPoster{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: cfg.UserAgent,
	}
}

// Post sends body with POST. A non-2xx status is a *shipper.TransportError
// carrying the status code.
func (p *HTTPPoster) Post(ctx context.Context, url, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/xml, application/xml")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &shipper.TransportError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &shipper.TransportError{URL: url, StatusCode: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &shipper.TransportError{URL: url, StatusCode: resp.StatusCode}
	}
	return data, nil
}

package transport

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/tournevent/shipgate/pkg/shipper"
)

// Request is one call captured by MockPoster.
type Request struct {
	URL         string
	ContentType string
	Body        []byte
}

// Form decodes a form-encoded body.
func (r Request) Form() (url.Values, error) {
	return url.ParseQuery(string(r.Body))
}

// MockPoster is a Poster for testing. Replies are served from OnPost when
// set, otherwise from Responses in order, repeating the last one.
type MockPoster struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnPost    func(ctx context.Context, req Request) ([]byte, error)
	Responses [][]byte

	mu       sync.Mutex
	requests []Request
}

// NewMockPoster creates a mock serving responses in order.
func NewMockPoster(responses ...[]byte) *MockPoster {
	return &MockPoster{Responses: responses}
}

// Post records the request and returns the next canned reply.
func (m *MockPoster) Post(ctx context.Context, target, contentType string, body []byte) ([]byte, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	req := Request{URL: target, ContentType: contentType, Body: append([]byte(nil), body...)}

	m.mu.Lock()
	n := len(m.requests)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.SimulateErrors {
		return nil, &shipper.TransportError{URL: target, StatusCode: 503}
	}
	if m.OnPost != nil {
		return m.OnPost(ctx, req)
	}
	if len(m.Responses) == 0 {
		return nil, nil
	}
	if n >= len(m.Responses) {
		n = len(m.Responses) - 1
	}
	return m.Responses[n], nil
}

// Requests returns the captured requests in order.
func (m *MockPoster) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Calls returns how many requests were posted.
func (m *MockPoster) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

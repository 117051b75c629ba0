// Package httputil holds the outbound HTTP client abstraction used by the
// geocoder and the history archive.
package httputil

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"
)

// HTTPClient sends HTTP requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StandardClient wraps *http.Client and stamps every request with a
// User-Agent when the caller did not set one.
type StandardClient struct {
	Client    *http.Client
	UserAgent string
}

// NewStandardClient creates a client with the given timeout. A zero timeout
// leaves requests bounded only by their context.
func NewStandardClient(timeout time.Duration, userAgent string) *StandardClient {
	return &StandardClient{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}
}

func (c *StandardClient) Do(req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	return c.Client.Do(req)
}

// MockResponse is a canned response for MockClient
type MockResponse struct {
	StatusCode int
	Body       string
	Error      error
}

// MockClient records requests and replays queued responses in order. Once
// the queue is drained, Fallback (or an empty 200) is returned.
type MockClient struct {
	mu        sync.Mutex
	DoFunc    func(req *http.Request) (*http.Response, error)
	Fallback  *MockResponse
	requests  []*http.Request
	responses []*MockResponse
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// AddResponse queues a response
func (m *MockClient) AddResponse(status int, body string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, &MockResponse{StatusCode: status, Body: body})
	return m
}

// AddError queues a transport error
func (m *MockClient) AddError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, &MockResponse{Error: err})
	return m
}

func (m *MockClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	doFunc := m.DoFunc
	var next *MockResponse
	if len(m.responses) > 0 {
		next, m.responses = m.responses[0], m.responses[1:]
	} else {
		next = m.Fallback
	}
	m.mu.Unlock()

	if doFunc != nil {
		return doFunc(req)
	}
	if next == nil {
		next = &MockResponse{StatusCode: http.StatusOK}
	}
	if next.Error != nil {
		return nil, next.Error
	}
	return &http.Response{
		StatusCode: next.StatusCode,
		Body:       io.NopCloser(bytes.NewBufferString(next.Body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Requests returns a copy of the recorded requests
func (m *MockClient) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*http.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of recorded requests
func (m *MockClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

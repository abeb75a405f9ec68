package httputil

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// Doer is the part of *http.Client the API client needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CannedResponse is one reply served by ReplayClient.
type CannedResponse struct {
	StatusCode int
	Body       string
	Err        error
}

// ReplayClient answers requests from a queue of canned responses and records
// every request it sees. Once the queue is empty it answers 200 with an
// empty body.
type ReplayClient struct {
	mu        sync.Mutex
	requests  []*http.Request
	bodies    []string
	responses []CannedResponse
}

// NewReplayClient returns a client that serves responses in order.
func NewReplayClient(responses ...CannedResponse) *ReplayClient {
	return &ReplayClient{responses: responses}
}

// Respond queues another response.
func (c *ReplayClient) Respond(status int, body string) *ReplayClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, CannedResponse{StatusCode: status, Body: body})
	return c
}

// Do records req and returns the next queued response.
func (c *ReplayClient) Do(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = string(b)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	c.bodies = append(c.bodies, body)

	resp := CannedResponse{StatusCode: http.StatusOK}
	if len(c.responses) > 0 {
		resp, c.responses = c.responses[0], c.responses[1:]
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &http.Response{
		StatusCode: resp.StatusCode,
		Body:       io.NopCloser(bytes.NewBufferString(resp.Body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Request:    req,
	}, nil
}

// Request returns the nth recorded request and its body.
func (c *ReplayClient) Request(n int) (*http.Request, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 || n >= len(c.requests) {
		return nil, ""
	}
	return c.requests[n], c.bodies[n]
}

// RequestCount returns the number of recorded requests.
func (c *ReplayClient) RequestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

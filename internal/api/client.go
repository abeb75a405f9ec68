package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/banshee-data/yardwatch/internal/httputil"
	"github.com/banshee-data/yardwatch/internal/report"
	"github.com/banshee-data/yardwatch/internal/yard"
)

// Client talks to a running yardwatch server. The CLI uses it for status,
// clear and reset commands.
type Client struct {
	base string
	http httputil.Doer
}

// NewClient returns a client for the server at base (e.g.
// "http://localhost:8080"). A nil doer uses http.DefaultClient.
func NewClient(base string, doer httputil.Doer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(base, "/"), http: doer}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, httputil.MaxBodyBytes))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Status fetches the latest published yard status.
func (c *Client) Status(ctx context.Context) (yard.Status, error) {
	var st yard.Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &st)
	return st, err
}

// Performance fetches the dwell summary.
func (c *Client) Performance(ctx context.Context) (report.Summary, error) {
	var s report.Summary
	err := c.do(ctx, http.MethodGet, "/api/performance", nil, &s)
	return s, err
}

// ClearTrailThrough acknowledges the alert on sectionID. It reports whether
// an open alert was cleared.
func (c *Client) ClearTrailThrough(ctx context.Context, sectionID string) (bool, error) {
	var out struct {
		Cleared bool `json:"cleared"`
	}
	err := c.do(ctx, http.MethodPost, "/api/trail-through/clear", clearRequest{SectionID: sectionID}, &out)
	return out.Cleared, err
}

// Reset resets one section, or all of them when sectionID is empty.
func (c *Client) Reset(ctx context.Context, username, sectionID string) error {
	return c.do(ctx, http.MethodPost, "/api/sections/reset", resetRequest{Username: username, SectionID: sectionID}, nil)
}

// Package web fetches report files over HTTP from a static stats endpoint,
// e.g. https://example.org/stats/2021-09-stats.json.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"transstats/internal/core"
	"transstats/internal/reports"
)

// maxReportBytes bounds a single report download.
const maxReportBytes = 8 << 20

type Client struct {
	http    *http.Client
	baseURL *url.URL
}

var _ reports.Fetcher = (*Client)(nil)

// New creates a client for baseURL. A zero timeout disables the overall
// request timeout.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, errors.New("base url has no host")
	}
	return NewWithHTTPClient(u, newHTTPClientWithPooling(timeout)), nil
}

// NewWithHTTPClient uses hc as is; intended for tests and custom transports.
func NewWithHTTPClient(baseURL *url.URL, hc *http.Client) *Client {
	return &Client{http: hc, baseURL: baseURL}
}

// newHTTPClientWithPooling keeps connections alive across the concurrent
// month fetches of one load.
func newHTTPClientWithPooling(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// URL returns the address of fileID.
func (c *Client) URL(fileID string) string {
	return c.baseURL.JoinPath(fileID).String()
}

func (c *Client) Fetch(ctx context.Context, fileID string) (core.RawReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(fileID), nil)
	if err != nil {
		return core.RawReport{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.RawReport{}, fmt.Errorf("get %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return core.RawReport{}, fmt.Errorf("%w: %s", reports.ErrNotFound, fileID)
	case resp.StatusCode != http.StatusOK:
		return core.RawReport{}, fmt.Errorf("get %s: unexpected status %s", fileID, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBytes+1))
	if err != nil {
		return core.RawReport{}, fmt.Errorf("read %s: %w", fileID, err)
	}
	if len(data) > maxReportBytes {
		return core.RawReport{}, fmt.Errorf("%w: %s exceeds %d bytes", reports.ErrInvalidReport, fileID, maxReportBytes)
	}

	r, err := reports.Decode(data)
	if err != nil {
		return core.RawReport{}, fmt.Errorf("decode %s: %w", fileID, err)
	}
	return r, nil
}

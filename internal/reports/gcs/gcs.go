// Package gcs fetches report files from a Google Cloud Storage bucket through
// the JSON API client in google.golang.org/api.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gstorage "google.golang.org/api/storage/v1"

	"transstats/internal/core"
	"transstats/internal/reports"
)

const maxReportBytes = 8 << 20

type Client struct {
	svc    *gstorage.Service
	bucket string
	prefix string
}

var _ reports.Fetcher = (*Client)(nil)

// Config selects the bucket and optional object prefix (e.g. "stats/").
// CredentialsFile falls back to GOOGLE_APPLICATION_CREDENTIALS, then to
// application default credentials.
type Config struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	Endpoint        string
}

func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("missing GCS bucket")
	}

	credsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if credsFile != "" {
		slog.InfoContext(ctx, "Using service account credentials for GCS", "path", credsFile)
		opts = append(opts, goption.WithCredentialsFile(credsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, goption.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, goption.WithScopes(gstorage.DevstorageReadOnlyScope))

	svc, err := gstorage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}

	return &Client{svc: svc, bucket: bucket, prefix: cfg.Prefix}, nil
}

// ObjectName returns the object path of fileID inside the bucket.
func (c *Client) ObjectName(fileID string) string {
	if c.prefix == "" {
		return fileID
	}
	return path.Join(c.prefix, fileID)
}

func (c *Client) Fetch(ctx context.Context, fileID string) (core.RawReport, error) {
	name := c.ObjectName(fileID)
	resp, err := c.svc.Objects.Get(c.bucket, name).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return core.RawReport{}, fmt.Errorf("%w: gs://%s/%s", reports.ErrNotFound, c.bucket, name)
		}
		return core.RawReport{}, fmt.Errorf("download gs://%s/%s: %w", c.bucket, name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBytes+1))
	if err != nil {
		return core.RawReport{}, fmt.Errorf("read gs://%s/%s: %w", c.bucket, name, err)
	}
	if len(data) > maxReportBytes {
		return core.RawReport{}, fmt.Errorf("%w: gs://%s/%s exceeds %d bytes", reports.ErrInvalidReport, c.bucket, name, maxReportBytes)
	}

	r, err := reports.Decode(data)
	if err != nil {
		return core.RawReport{}, fmt.Errorf("decode gs://%s/%s: %w", c.bucket, name, err)
	}
	return r, nil
}

// SPDX-License-Identifier: MIT

// Package fetch downloads source assets into session-owned paths.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrEmpty reports a source that fetched successfully but contained no bytes.
var ErrEmpty = errors.New("asset is empty")

// StatusError reports a non-2xx response for a source URL.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetcher retrieves a remote asset into a local file. The pipeline
// classifies failures into its own taxonomy.
type Fetcher interface {
	Fetch(ctx context.Context, url, dst string) (int64, error)
}

// HTTPFetcher is the production Fetcher.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTP creates an HTTPFetcher. maxBytes caps the downloaded size
// (0 means no cap).
func NewHTTP(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads url into dst and returns the number of bytes written.
// Zero-byte bodies yield ErrEmpty; oversized bodies fail rather than
// truncate.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	out, err := os.Create(dst) // #nosec G304 -- dst is session-confined
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() { _ = out.Close() }()

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	n, err := io.Copy(out, body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", url, err)
	}
	if f.maxBytes > 0 && n > f.maxBytes {
		return n, fmt.Errorf("download %s: exceeds %d byte limit", url, f.maxBytes)
	}
	if n == 0 {
		return 0, fmt.Errorf("%s: %w", url, ErrEmpty)
	}
	return n, nil
}

// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package reconcile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/miragelib/mirage/internal/metrics"
)

const (
	defaultImageTimeout  = 30 * time.Second
	defaultImageMaxBytes = 20 << 20 // 20 MiB
	defaultImageRate     = 5        // requests per second
)

// HTTPImageFetcher downloads artwork over HTTP with a client-side rate
// limit, so a large first run does not hammer the artwork host.
type HTTPImageFetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	maxBytes int64
}

// ImageFetcherConfig holds fetcher settings; zero values use defaults.
type ImageFetcherConfig struct {
	Timeout       time.Duration
	MaxBytes      int64
	RatePerSecond float64
}

// NewHTTPImageFetcher creates an image fetcher.
func NewHTTPImageFetcher(cfg ImageFetcherConfig) *HTTPImageFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultImageTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultImageMaxBytes
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultImageRate
	}
	return &HTTPImageFetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		maxBytes: cfg.MaxBytes,
	}
}

// Fetch downloads one image. It blocks on the rate limiter, rejects
// non-image responses and enforces the size cap.
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.ImageDownloads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ImageDownloads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.ImageDownloads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("download image: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		metrics.ImageDownloads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("download image: unexpected content type %q", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		metrics.ImageDownloads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		metrics.ImageDownloads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("download image: body exceeds %d bytes", f.maxBytes)
	}

	metrics.ImageDownloads.WithLabelValues("success").Inc()
	return data, nil
}

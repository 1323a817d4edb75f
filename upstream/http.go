// Package upstream holds the HTTP clients for RxNav and openFDA. Every call
// goes through a per-host rate limiter and a per-endpoint circuit breaker.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/giygas/medlookup-api/logging"
	"github.com/giygas/medlookup-api/metrics"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"
)

const (
	maxResponseSize = 4 * 1024 * 1024
	userAgent       = "medlookup-api/1.0"
)

// Options configures one upstream host
type Options struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit int // requests per second, 0 disables limiting
	Breakers  *BreakerSet
	Client    *http.Client
}

// transport is the shared plumbing of both clients
type transport struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	breakers *BreakerSet
}

func newTransport(opts Options) *transport {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit)
	}

	breakers := opts.Breakers
	if breakers == nil {
		breakers = NewBreakerSet(DefaultBreakerSettings())
	}

	return &transport{
		baseURL:  opts.BaseURL,
		client:   client,
		limiter:  limiter,
		breakers: breakers,
	}
}

// getJSON fetches rawURL and decodes the body into out. found is false on 404,
// which upstreams use for "no match" and which is not a breaker failure.
func (t *transport) getJSON(ctx context.Context, endpoint, rawURL string, out any) (bool, error) {
	// An abandoned call never reaches the breaker, so it cannot take a half-open slot.
	if err := ctx.Err(); err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "cancelled").Inc()
		return false, fmt.Errorf("%s: %w", endpoint, err)
	}

	found, err := t.breakers.get(endpoint).Execute(func() (bool, error) {
		return t.do(ctx, endpoint, rawURL, out)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.UpstreamRequests.WithLabelValues(endpoint, "rejected").Inc()
		return false, fmt.Errorf("%s: %w", endpoint, ErrCircuitOpen)
	case err != nil:
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return false, err
	}

	if found {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	} else {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "not_found").Inc()
	}
	return found, nil
}

func (t *transport) do(ctx context.Context, endpoint, rawURL string, out any) (bool, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("%s: rate limiter: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, fmt.Errorf("%s: failed to build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: request failed: %w", endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "endpoint", endpoint, "error", err)
		}
	}()

	logging.Debug("Upstream response",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return false, fmt.Errorf("%s: failed to read response: %w", endpoint, err)
	}
	if len(body) > maxResponseSize {
		return false, &DecodeError{Endpoint: endpoint, Err: fmt.Errorf("response exceeds %d bytes", maxResponseSize)}
	}

	// Label text occasionally arrives Latin-1 encoded.
	if !utf8.Valid(body) {
		decoded, decErr := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(body)))
		if decErr != nil {
			return false, &DecodeError{Endpoint: endpoint, Err: decErr}
		}
		body = decoded
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, &DecodeError{Endpoint: endpoint, Err: err}
	}
	return true, nil
}

// Package sharepoint implements the secure gateway to the list-based backing
// store. Every mutating call negotiates a form digest, is retried with
// backoff, and is serialized against other calls targeting the same resource.
package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/metrics"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/pkg/logger"
)

const (
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = time.Second
	defaultRequestSpacing = 250 * time.Millisecond
	defaultTimeout        = 30 * time.Second

	acceptVerbose = "application/json;odata=verbose"
)

// Config configures the gateway client.
type Config struct {
	// SiteURL is the root of the backing site, e.g. https://host/sites/ideas.
	SiteURL string
	// HTTPClient overrides the default transport.
	HTTPClient *http.Client
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// RetryBaseDelay scales the linear backoff: attempt N waits N*base.
	RetryBaseDelay time.Duration
	// RequestSpacing is the fixed delay between consecutive calls that
	// target the same resource key.
	RequestSpacing time.Duration
	// DigestCacheTTL enables digest caching when positive. Zero keeps the
	// fetch-fresh-per-call baseline.
	DigestCacheTTL time.Duration
	// NoRetryOnClientError stops retrying 4xx responses. The default
	// retries every failure uniformly, matching the backing store's
	// observed flakiness on all status classes.
	NoRetryOnClientError bool

	Logger *logger.Logger
}

// Client is the secure API gateway. All list operations go through it.
type Client struct {
	httpClient        *http.Client
	digest            *DigestProvider
	locks             *resourceLocks
	siteURL           string
	maxRetries        int
	retryBaseDelay    time.Duration
	retryClientErrors bool
	log               *logger.Logger
}

// New constructs a gateway client for the configured site.
func New(cfg Config) (*Client, error) {
	siteURL := strings.TrimSuffix(strings.TrimSpace(cfg.SiteURL), "/")
	if siteURL == "" {
		return nil, fmt.Errorf("site URL required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay == 0 {
		baseDelay = defaultRetryBaseDelay
	}
	spacing := cfg.RequestSpacing
	if spacing == 0 {
		spacing = defaultRequestSpacing
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("sharepoint")
	}

	digest, err := NewDigestProvider(httpClient, siteURL, cfg.DigestCacheTTL, log)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient:        httpClient,
		digest:            digest,
		locks:             newResourceLocks(rate.Every(spacing)),
		siteURL:           siteURL,
		maxRetries:        maxRetries,
		retryBaseDelay:    baseDelay,
		retryClientErrors: !cfg.NoRetryOnClientError,
		log:               log,
	}, nil
}

// Get fetches a resource.
func (c *Client) Get(ctx context.Context, resource string) (Payload, error) {
	return c.call(ctx, callSpec{resource: resource, httpMethod: http.MethodGet})
}

// Create posts a new item to a collection resource.
func (c *Client) Create(ctx context.Context, resource string, body any) (Payload, error) {
	return c.call(ctx, callSpec{
		resource:   resource,
		httpMethod: http.MethodPost,
		body:       body,
		mutating:   true,
	})
}

// Update merges fields into an existing item. An empty etag skips the
// concurrency check ("*").
func (c *Client) Update(ctx context.Context, resource string, body any, etag string) (Payload, error) {
	if etag == "" {
		etag = "*"
	}
	return c.call(ctx, callSpec{
		resource:       resource,
		httpMethod:     http.MethodPost,
		methodOverride: "MERGE",
		etag:           etag,
		body:           body,
		mutating:       true,
	})
}

// Remove deletes an item.
func (c *Client) Remove(ctx context.Context, resource string) error {
	_, err := c.call(ctx, callSpec{
		resource:       resource,
		httpMethod:     http.MethodPost,
		methodOverride: "DELETE",
		etag:           "*",
		mutating:       true,
	})
	return err
}

// InFlight reports how many resource keys currently have outstanding calls.
func (c *Client) InFlight() int {
	return c.locks.inFlight()
}

type callSpec struct {
	resource       string
	httpMethod     string
	methodOverride string
	etag           string
	body           any
	mutating       bool
}

func (s callSpec) method() string {
	if s.methodOverride != "" {
		return s.methodOverride
	}
	return s.httpMethod
}

// call serializes against the resource key, then runs the retry loop. The
// whole attempt, digest negotiation included, is inside the loop so a failed
// negotiation is retried like any other failure.
func (c *Client) call(ctx context.Context, spec callSpec) (Payload, error) {
	var bodyBytes []byte
	if spec.body != nil {
		var err error
		bodyBytes, err = json.Marshal(spec.body)
		if err != nil {
			return Payload{}, fmt.Errorf("marshal request body: %w", err)
		}
	}

	release, err := c.locks.acquire(ctx, spec.resource)
	if err != nil {
		return Payload{}, err
	}
	defer release()

	requestID := uuid.NewString()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordGatewayRetry()
			c.log.WithField("resource", spec.resource).
				WithField("request_id", requestID).
				WithError(lastErr).
				Warnf("retrying %s (attempt %d)", spec.method(), attempt+1)

			select {
			case <-ctx.Done():
				metrics.RecordGatewayCall(spec.method(), time.Since(start), ctx.Err())
				return Payload{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryBaseDelay):
			}
		}

		payload, err := c.attempt(ctx, spec, bodyBytes, requestID)
		if err == nil {
			metrics.RecordGatewayCall(spec.method(), time.Since(start), nil)
			return payload, nil
		}
		lastErr = err

		if !retryable(err, c.retryClientErrors) {
			break
		}
	}

	metrics.RecordGatewayCall(spec.method(), time.Since(start), lastErr)
	return Payload{}, lastErr
}

func (c *Client) attempt(ctx context.Context, spec callSpec, body []byte, requestID string) (Payload, error) {
	var digest string
	if spec.mutating {
		var err error
		digest, err = c.digest.Acquire(ctx)
		metrics.RecordDigestFetch(err)
		if err != nil {
			return Payload{}, err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.httpMethod, c.siteURL+"/_api/"+spec.resource, reader)
	if err != nil {
		return Payload{}, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", acceptVerbose)
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", acceptVerbose)
	}
	if digest != "" {
		req.Header.Set("X-RequestDigest", digest)
	}
	if spec.methodOverride != "" {
		req.Header.Set("X-HTTP-Method", spec.methodOverride)
	}
	if spec.etag != "" {
		req.Header.Set("IF-MATCH", spec.etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Payload{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return Payload{}, nil
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Payload{}, &NetworkError{Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			c.digest.Invalidate()
		}
		return Payload{}, &StatusError{Status: resp.StatusCode, Body: truncate(respBody, 512)}
	}

	return parsePayload(respBody)
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "...(truncated)"
	}
	return s
}

package sharepoint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/pkg/logger"
)

// DigestProvider negotiates the form digest the backing store requires on
// every mutating call. The baseline behaviour is a fresh negotiation per
// request; an optional short-lived cache can be enabled with a TTL, bounded
// additionally by the timeout the server reports alongside the digest.
type DigestProvider struct {
	client  *http.Client
	siteURL string
	ttl     time.Duration
	log     *logger.Logger

	mu      sync.Mutex
	digest  string
	expires time.Time
}

// NewDigestProvider constructs a provider for the given site. A zero cacheTTL
// disables caching entirely.
func NewDigestProvider(client *http.Client, siteURL string, cacheTTL time.Duration, log *logger.Logger) (*DigestProvider, error) {
	siteURL = strings.TrimSuffix(strings.TrimSpace(siteURL), "/")
	if siteURL == "" {
		return nil, fmt.Errorf("site URL required")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("sharepoint-digest")
	}
	return &DigestProvider{
		client:  client,
		siteURL: siteURL,
		ttl:     cacheTTL,
		log:     log,
	}, nil
}

// Acquire returns a form digest valid for the next mutating call. There is no
// retry at this layer; the gateway's retry loop wraps the whole attempt.
func (p *DigestProvider) Acquire(ctx context.Context) (string, error) {
	if p.ttl > 0 {
		p.mu.Lock()
		if p.digest != "" && time.Now().Before(p.expires) {
			digest := p.digest
			p.mu.Unlock()
			return digest, nil
		}
		p.mu.Unlock()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.siteURL+"/_api/contextinfo", nil)
	if err != nil {
		return "", &DigestError{Err: fmt.Errorf("build contextinfo request: %w", err)}
	}
	req.Header.Set("Accept", "application/json;odata=verbose")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &DigestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", &DigestError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &DigestError{Err: fmt.Errorf("read contextinfo response: %w", err)}
	}

	info := gjson.GetBytes(body, "d.GetContextWebInformation")
	digest := info.Get("FormDigestValue").String()
	if digest == "" {
		return "", &DigestError{Err: fmt.Errorf("contextinfo response missing FormDigestValue")}
	}

	if p.ttl > 0 {
		lifetime := p.ttl
		if secs := info.Get("FormDigestTimeoutSeconds").Int(); secs > 0 {
			if serverLifetime := time.Duration(secs) * time.Second; serverLifetime < lifetime {
				lifetime = serverLifetime
			}
		}
		p.mu.Lock()
		p.digest = digest
		p.expires = time.Now().Add(lifetime)
		p.mu.Unlock()
		p.log.WithField("ttl", lifetime).Debug("form digest cached")
	}

	return digest, nil
}

// Invalidate drops any cached digest so the next Acquire negotiates fresh.
// The gateway calls this when the server rejects a digest.
func (p *DigestProvider) Invalidate() {
	p.mu.Lock()
	p.digest = ""
	p.expires = time.Time{}
	p.mu.Unlock()
}

package sharepoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newDigestServer(t *testing.T, calls *int32, timeoutSeconds int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_api/contextinfo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		atomic.AddInt32(calls, 1)
		fmt.Fprintf(w, `{"d":{"GetContextWebInformation":{"FormDigestValue":"digest-%d","FormDigestTimeoutSeconds":%d}}}`,
			atomic.LoadInt32(calls), timeoutSeconds)
	}))
}

func TestDigestProvider_FreshPerCall(t *testing.T) {
	var calls int32
	server := newDigestServer(t, &calls, 1800)
	defer server.Close()

	provider, err := NewDigestProvider(server.Client(), server.URL, 0, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	first, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	second, err := provider.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if calls != 2 {
		t.Errorf("negotiations = %d, want 2 (no caching by default)", calls)
	}
	if first == second {
		t.Error("expected distinct digests from distinct negotiations")
	}
}

func TestDigestProvider_Cache(t *testing.T) {
	var calls int32
	server := newDigestServer(t, &calls, 1800)
	defer server.Close()

	provider, err := NewDigestProvider(server.Client(), server.URL, time.Minute, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	first, _ := provider.Acquire(context.Background())
	second, _ := provider.Acquire(context.Background())
	if calls != 1 {
		t.Errorf("negotiations = %d, want 1 (cached)", calls)
	}
	if first != second {
		t.Error("cached acquire should return the same digest")
	}

	provider.Invalidate()
	third, _ := provider.Acquire(context.Background())
	if calls != 2 {
		t.Errorf("negotiations after invalidate = %d, want 2", calls)
	}
	if third == first {
		t.Error("invalidate should force a fresh digest")
	}
}

func TestDigestProvider_CacheBoundedByServerTimeout(t *testing.T) {
	var calls int32
	// A 1-second server lifetime beats the long configured TTL.
	server := newDigestServer(t, &calls, 1)
	defer server.Close()

	provider, err := NewDigestProvider(server.Client(), server.URL, time.Hour, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	provider.Acquire(context.Background())
	time.Sleep(1100 * time.Millisecond)
	provider.Acquire(context.Background())
	if calls != 2 {
		t.Errorf("negotiations = %d, want 2 (server timeout expired the cache)", calls)
	}
}

func TestDigestProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	provider, err := NewDigestProvider(server.Client(), server.URL, 0, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	_, err = provider.Acquire(context.Background())
	var digestErr *DigestError
	if !errors.As(err, &digestErr) {
		t.Fatalf("error = %v, want DigestError", err)
	}
	if digestErr.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", digestErr.Status)
	}
}

func TestDigestProvider_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	provider, err := NewDigestProvider(nil, server.URL, 0, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	_, err = provider.Acquire(context.Background())
	var digestErr *DigestError
	if !errors.As(err, &digestErr) {
		t.Fatalf("error = %v, want DigestError", err)
	}
	if digestErr.Status != 0 {
		t.Errorf("status = %d, want 0 for transport failure", digestErr.Status)
	}
}

func TestDigestProvider_MissingValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"d":{}}`)
	}))
	defer server.Close()

	provider, _ := NewDigestProvider(server.Client(), server.URL, 0, nil)
	_, err := provider.Acquire(context.Background())
	var digestErr *DigestError
	if !errors.As(err, &digestErr) {
		t.Fatalf("error = %v, want DigestError", err)
	}
}

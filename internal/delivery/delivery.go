// Package delivery reads remaining delivery quota from the availability service.
//
// The service answers GET {url} with
//
//	{"global_remaining": 40, "daily": {"2026-02-14": 3, "2026-02-15": 12}}
//
// and the client keeps the last answer in memory, honoring Cache-Control max-age and ETag.
package delivery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dunglas/httpsfv"
	"github.com/tidwall/gjson"
)

// DefaultCacheTTL is used when the service sends no usable cache headers.
const DefaultCacheTTL = 5 * time.Minute

// DefaultFetchTimeout bounds a single availability request.
const DefaultFetchTimeout = 5 * time.Second

// DateLayout is the key format of the daily quota map.
const DateLayout = "2006-01-02"

// Availability is one snapshot of remaining delivery quota.
type Availability struct {
	GlobalRemaining int            `json:"global_remaining"`
	Daily           map[string]int `json:"daily"`
	FetchedAt       time.Time      `json:"fetched_at"`
	ExpiresAt       time.Time      `json:"expires_at"`
}

// Remaining returns the quota left for date (YYYY-MM-DD), 0 when unknown.
func (a *Availability) Remaining(date string) int {
	if a == nil {
		return 0
	}
	return a.Daily[date]
}

// Config contains configuration for the availability client.
type Config struct {
	URL          string
	CacheTTL     time.Duration // used when cache headers don't specify a duration
	FetchTimeout time.Duration
	HTTPClient   *http.Client
}

// Client fetches availability over HTTP and caches the latest snapshot.
// Safe for concurrent use.
type Client struct {
	url    string
	client *http.Client
	ttl    time.Duration

	mu      sync.RWMutex
	current *Availability
	etag    string
}

// New creates an availability client.
func New(cfg Config) *Client {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.FetchTimeout}
	}
	return &Client{url: cfg.URL, client: client, ttl: cfg.CacheTTL}
}

// Availability returns the cached snapshot while it is fresh, otherwise revalidates.
// On fetch failure with a stale snapshot, the stale snapshot is returned.
func (c *Client) Availability(ctx context.Context) (*Availability, error) {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()

	if current != nil && current.ExpiresAt.After(time.Now()) {
		return current, nil
	}

	fresh, err := c.fetch(ctx)
	if err != nil {
		if current != nil {
			return current, nil
		}
		return nil, fmt.Errorf("fetch delivery availability: %w", err)
	}
	return fresh, nil
}

// Refresh fetches from the service regardless of freshness. Used by the scheduled refresh.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.fetch(ctx)
	return err
}

// GlobalRemaining returns the overall quota left, 0 when unavailable.
func (c *Client) GlobalRemaining(ctx context.Context) int {
	a, err := c.Availability(ctx)
	if err != nil {
		return 0
	}
	return a.GlobalRemaining
}

// DailyRemaining returns the quota left for date (YYYY-MM-DD), 0 when unavailable.
func (c *Client) DailyRemaining(ctx context.Context, date string) int {
	if date == "" {
		return 0
	}
	a, err := c.Availability(ctx)
	if err != nil {
		return 0
	}
	return a.Remaining(date)
}

func (c *Client) fetch(ctx context.Context) (*Availability, error) {
	if c.url == "" {
		return nil, fmt.Errorf("no availability URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	stale, etag := c.current, c.etag
	c.mu.RUnlock()

	if stale != nil && etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	// 304 Not Modified - extend the snapshot we have
	if resp.StatusCode == http.StatusNotModified && stale != nil {
		renewed := *stale
		return c.store(&renewed, resp), nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	a, err := parseAvailability(body)
	if err != nil {
		return nil, err
	}
	return c.store(a, resp), nil
}

func (c *Client) store(a *Availability, resp *http.Response) *Availability {
	now := time.Now()
	a.FetchedAt = now
	a.ExpiresAt = now.Add(cacheTTL(resp.Header, c.ttl))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = a
	if etag := resp.Header.Get("ETag"); etag != "" {
		c.etag = etag
	}
	return a
}

// parseAvailability reads the service payload. Missing fields read as zero quota;
// daily entries that are not numbers are skipped.
func parseAvailability(body []byte) (*Availability, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("parse availability JSON: invalid document")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, fmt.Errorf("parse availability JSON: expected object")
	}

	a := &Availability{
		GlobalRemaining: int(doc.Get("global_remaining").Int()),
		Daily:           make(map[string]int),
	}
	doc.Get("daily").ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			a.Daily[key.String()] = int(value.Int())
		}
		return true
	})
	return a, nil
}

// cacheTTL extracts the TTL from response headers.
// Priority: no-store/no-cache (0), max-age in Cache-Control, then Expires, then fallback.
func cacheTTL(h http.Header, fallback time.Duration) time.Duration {
	if cc := h.Values("Cache-Control"); len(cc) > 0 {
		lowered := make([]string, len(cc))
		for i, v := range cc {
			lowered[i] = strings.ToLower(v)
		}
		if dict, err := httpsfv.UnmarshalDictionary(lowered); err == nil {
			if _, ok := dict.Get("no-store"); ok {
				return 0
			}
			if _, ok := dict.Get("no-cache"); ok {
				return 0
			}
			if member, ok := dict.Get("max-age"); ok {
				if item, ok := member.(httpsfv.Item); ok {
					if seconds, ok := item.Value.(int64); ok && seconds >= 0 {
						return time.Duration(seconds) * time.Second
					}
				}
			}
		}
	}

	if expires := h.Get("Expires"); expires != "" {
		if t, err := http.ParseTime(expires); err == nil {
			if ttl := time.Until(t); ttl > 0 {
				return ttl
			}
		}
	}

	return fallback
}

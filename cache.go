package validate

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// FetchFunc retrieves the document at an absolute url.
type FetchFunc func(ctx context.Context, url string) (any, error)

type cacheEntry struct {
	doc any
	err error
}

// Cache memoizes fetched documents for one compilation. Every distinct url
// is fetched at most once; concurrent requests for a url that is being
// fetched wait for that fetch and share its result. Failures are cached
// too, so a failing url is not retried within the compilation.
type Cache struct {
	fetch  FetchFunc
	logger *slog.Logger

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]cacheEntry
	fetches atomic.Int64
}

// NewCache returns an empty Cache backed by fetch.
func NewCache(fetch FetchFunc, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		fetch:   fetch,
		logger:  logger,
		entries: map[string]cacheEntry{},
	}
}

// Get returns the document at rawURL, fetching it if needed.
// Fetch failures are returned as *ResolveError.
func (c *Cache) Get(ctx context.Context, rawURL string) (any, error) {
	key := normalizeURL(rawURL)
	if e, ok := c.lookup(key); ok {
		c.logger.Debug("cache hit", "url", key)
		return e.doc, e.err
	}
	v, _, _ := c.group.Do(key, func() (any, error) {
		// an earlier flight may have completed between lookup and Do
		if e, ok := c.lookup(key); ok {
			return e, nil
		}
		c.fetches.Add(1)
		doc, err := c.fetch(ctx, key)
		if err != nil {
			err = &ResolveError{URL: key, Err: err}
		}
		e := cacheEntry{doc, err}
		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()
		return e, nil
	})
	e := v.(cacheEntry)
	return e.doc, e.err
}

func (c *Cache) lookup(key string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Fetches returns the number of fetches performed.
func (c *Cache) Fetches() int {
	return int(c.fetches.Load())
}

// normalizeURL drops the fragment and lowercases scheme and host.
func normalizeURL(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		if i := strings.IndexByte(s, '#'); i != -1 {
			return s[:i]
		}
		return s
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

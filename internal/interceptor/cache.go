package interceptor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the key has no live entry.
var ErrCacheMiss = errors.New("interceptor: cache miss")

// Cache stores response bodies with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ResponseCache captures successful GET response bodies into a Cache as they
// pass through the pipeline. It never serves from the cache itself; callers
// consult Cached when they want stale-tolerant reads.
type ResponseCache struct {
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewResponseCache creates the caching interceptor.
func NewResponseCache(cache Cache, ttl time.Duration, log *slog.Logger) *ResponseCache {
	return &ResponseCache{cache: cache, ttl: ttl, log: log}
}

// InterceptResponse stores the body of successful GET responses.
func (c *ResponseCache) InterceptResponse(ctx context.Context, req *http.Request, resp *Response) (*Response, error) {
	if req.Method == http.MethodGet && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		key := cacheKey(req)
		if err := c.cache.Set(ctx, key, resp.Body, c.ttl); err != nil {
			// Cache failures never fail the call.
			c.log.Warn("response cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return resp, nil
}

// Cached returns the cached body for a previous GET of url, or ErrCacheMiss.
func (c *ResponseCache) Cached(ctx context.Context, url string) ([]byte, error) {
	return c.cache.Get(ctx, http.MethodGet+" "+url)
}

func cacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// memoryCacheEntry pairs a value with its expiry deadline.
type memoryCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local Cache with lazy expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry)}
}

// Get returns the live value for key, or ErrCacheMiss.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores value under key for ttl.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := make([]byte, len(value))
	copy(cpy, value)
	m.entries[key] = memoryCacheEntry{value: cpy, expiresAt: time.Now().Add(ttl)}
	return nil
}

package client

import (
	"net/http"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingHTTPClient creates an HTTP client which honours Cache-Control on responses.
// This is used to fetch signing keys (JWKS) which identity providers publish with a max-age,
// so key rotation is picked up without refetching on every request.
func NewCachingHTTPClient(cacheDir string, timeout time.Duration) *http.Client {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if cacheDir != "" {
		// Use disk-based cache for persistence across restarts
		cache = diskcache.New(cacheDir)
	}

	return &http.Client{
		Transport: httpcache.NewTransport(cache),
		Timeout:   timeout,
	}
}

// NewInMemoryCachingHTTPClient creates an HTTP client with in-memory caching only.
// Suitable for testing or when disk caching is not desired.
func NewInMemoryCachingHTTPClient() *http.Client {
	return NewCachingHTTPClient("", 10*time.Second)
}

// Package cache stores rendered workflow diagrams.
//
// Graphviz runs in a WebAssembly runtime, so producing an SVG or PNG costs
// far more than producing the DOT source it is drawn from. Diagrams are
// therefore cached under a key derived from the output format and the DOT
// text: an unchanged workflow never renders twice.
//
// Two backends are provided. [FileCache] keeps entries on disk and is shared
// by the CLI and the local server; [NullCache] stores nothing and is used
// when caching is disabled.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a rendered diagram stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. An expired or
	// unreadable entry is reported as a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// RenderKey is the key of a diagram rendered in format from dot.
func RenderKey(format, dot string) string {
	return "render:" + format + ":" + Hash([]byte(dot))
}

// GetOrCompute returns the value under key, calling compute and storing its
// result on a miss. Cache failures are not fatal: a broken cache degrades to
// calling compute every time.
func GetOrCompute(ctx context.Context, c Cache, key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, bool, error) {
	if data, hit, err := c.Get(ctx, key); err == nil && hit {
		return data, true, nil
	}
	data, err := compute()
	if err != nil {
		return nil, false, err
	}
	_ = c.Set(ctx, key, data, ttl)
	return data, false, nil
}

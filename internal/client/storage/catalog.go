package storage

import (
	"context"
	"time"
)

// CatalogCache defines interface for caching reference data (categories, cities, regions).
// Values are opaque JSON documents keyed by resource name; callers decide freshness.
type CatalogCache interface {
	// Put stores document under key with the fetch time
	Put(ctx context.Context, key string, document []byte, fetchedAt time.Time) error

	// Get returns document and its fetch time.
	// Returns ErrCacheMiss if key is absent
	Get(ctx context.Context, key string) ([]byte, time.Time, error)

	// Invalidate removes one key, or everything when key is empty
	Invalidate(ctx context.Context, key string) error
}

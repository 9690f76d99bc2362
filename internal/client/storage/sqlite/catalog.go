package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/camerannonces/internal/client/storage"
)

var _ storage.CatalogCache = (*Storage)(nil)

// Put stores a cached document
func (s *Storage) Put(ctx context.Context, key string, document []byte, fetchedAt time.Time) error {
	query := `
		INSERT INTO catalog_cache (cache_key, document, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			document = excluded.document,
			fetched_at = excluded.fetched_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, document, fetchedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to put cache entry %q: %w", key, err)
	}

	return nil
}

// Get returns a cached document with its fetch time
func (s *Storage) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	query := `
		SELECT document, fetched_at
		FROM catalog_cache
		WHERE cache_key = ?
	`

	var (
		document  []byte
		fetchedAt int64
	)

	err := s.db.QueryRowContext(ctx, query, key).Scan(&document, &fetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, storage.ErrCacheMiss
		}
		return nil, time.Time{}, fmt.Errorf("failed to get cache entry %q: %w", key, err)
	}

	return document, time.UnixMilli(fetchedAt), nil
}

// Invalidate removes one entry, or all entries when key is empty
func (s *Storage) Invalidate(ctx context.Context, key string) error {
	var err error
	if key == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM catalog_cache`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM catalog_cache WHERE cache_key = ?`, key)
	}
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	return nil
}

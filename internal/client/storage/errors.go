package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrProfileNotFound indicates that no user profile is cached
	ErrProfileNotFound = errors.New("profile not found")

	// ErrCacheMiss indicates that cached catalog data is absent
	ErrCacheMiss = errors.New("cache miss")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)

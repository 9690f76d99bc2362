package storage

import (
	"context"
)

// AuthStorage defines interface for storing authentication data on client.
// This is the lowest storage layer - it works with raw data (tokens may already be encrypted)
// and doesn't perform any encryption/decryption itself.
// Every method is a single transaction: readers never observe a half-written pair.
type AuthStorage interface {
	// SaveAuth stores both tokens and their metadata in one transaction
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored tokens.
	// Returns ErrAuthNotFound if no tokens exist
	GetAuth(ctx context.Context) (*AuthData, error)

	// SwapAuth atomically replaces stored tokens if match(current) is true.
	// current is nil when nothing is stored; next == nil deletes tokens and profile.
	SwapAuth(ctx context.Context, match func(current *AuthData) bool, next *AuthData) (bool, error)

	// DeleteAuth removes tokens and cached profile. Idempotent.
	DeleteAuth(ctx context.Context) error

	// SaveProfile stores serialized user profile
	SaveProfile(ctx context.Context, profile []byte) error

	// GetProfile returns serialized user profile.
	// Returns ErrProfileNotFound if nothing is cached
	GetProfile(ctx context.Context) ([]byte, error)

	// DeviceID returns the installation identifier, creating it on first call
	DeviceID(ctx context.Context) (string, error)
}

// AuthData represents authentication information in storage
// IMPORTANT: tokens may be either plaintext or sealed (base64 ciphertext),
// depending on whether auth.TokenStore was configured with a passphrase.
type AuthData struct {
	AccessToken       string `json:"-"`
	RefreshToken      string `json:"-"`
	TokenKind         string `json:"token_kind"`
	AccessTTLSeconds  int64  `json:"access_ttl_seconds"`
	RefreshTTLSeconds int64  `json:"refresh_ttl_seconds"`
	SavedAt           int64  `json:"saved_at"` // unix seconds
	Sealed            bool   `json:"sealed"`   // токены зашифрованы
}

package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/camerannonces/internal/client/storage"
)

// Три независимые записи (access token, refresh token, профиль) плюс метаданные пары
var (
	keyAccessToken  = []byte("access_token")
	keyRefreshToken = []byte("refresh_token")
	keyTokenMeta    = []byte("token_meta")
	keyUser         = []byte("user")
)

// SaveAuth stores authentication data
func (s *Storage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	if auth == nil {
		return fmt.Errorf("auth data is nil")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}
		return putAuth(bucket, auth)
	})
}

// GetAuth retrieves stored authentication data
func (s *Storage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	var auth *storage.AuthData

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		var err error
		auth, err = readAuth(bucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	if auth == nil {
		return nil, storage.ErrAuthNotFound
	}
	return auth, nil
}

// SwapAuth atomically replaces tokens when match(current) holds
func (s *Storage) SwapAuth(ctx context.Context, match func(current *storage.AuthData) bool, next *storage.AuthData) (bool, error) {
	swapped := false

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		current, err := readAuth(bucket)
		if err != nil {
			// Нечитаемые данные считаем отсутствующими
			current = nil
		}

		if !match(current) {
			return nil
		}

		if next == nil {
			if err := deleteAll(bucket); err != nil {
				return err
			}
		} else if err := putAuth(bucket, next); err != nil {
			return err
		}

		swapped = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return swapped, nil
}

// DeleteAuth removes tokens and cached profile (logout). Idempotent.
func (s *Storage) DeleteAuth(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}
		return deleteAll(bucket)
	})
}

// SaveProfile stores serialized profile
func (s *Storage) SaveProfile(ctx context.Context, profile []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		if err := bucket.Put(keyUser, profile); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		return nil
	})
}

// GetProfile returns serialized profile
func (s *Storage) GetProfile(ctx context.Context) ([]byte, error) {
	var profile []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketAuth)
		if bucket == nil {
			return fmt.Errorf("auth bucket not found")
		}

		data := bucket.Get(keyUser)
		if data == nil {
			return storage.ErrProfileNotFound
		}

		// Значения bbolt действительны только внутри транзакции
		profile = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

func putAuth(bucket *bbolt.Bucket, auth *storage.AuthData) error {
	meta, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal token metadata: %w", err)
	}

	if err := bucket.Put(keyAccessToken, []byte(auth.AccessToken)); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if err := bucket.Put(keyRefreshToken, []byte(auth.RefreshToken)); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	if err := bucket.Put(keyTokenMeta, meta); err != nil {
		return fmt.Errorf("failed to save token metadata: %w", err)
	}
	return nil
}

// readAuth возвращает nil, nil если токенов нет
func readAuth(bucket *bbolt.Bucket) (*storage.AuthData, error) {
	access := bucket.Get(keyAccessToken)
	refresh := bucket.Get(keyRefreshToken)
	if access == nil && refresh == nil {
		return nil, nil
	}

	auth := &storage.AuthData{}
	if meta := bucket.Get(keyTokenMeta); meta != nil {
		if err := json.Unmarshal(meta, auth); err != nil {
			return nil, fmt.Errorf("failed to unmarshal token metadata: %w", err)
		}
	}

	auth.AccessToken = string(access)
	auth.RefreshToken = string(refresh)
	return auth, nil
}

func deleteAll(bucket *bbolt.Bucket) error {
	for _, key := range [][]byte{keyAccessToken, keyRefreshToken, keyTokenMeta, keyUser} {
		if err := bucket.Delete(key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

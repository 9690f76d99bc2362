package boltdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var keyDeviceID = []byte("device_id")

// DeviceID returns the installation identifier, generating it on first call
func (s *Storage) DeviceID(ctx context.Context) (string, error) {
	var id string

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if existing := bucket.Get(keyDeviceID); existing != nil {
			if _, err := uuid.ParseBytes(existing); err == nil {
				id = string(existing)
				return nil
			}
			// Повреждённое значение перезаписываем новым
		}

		id = uuid.NewString()
		if err := bucket.Put(keyDeviceID, []byte(id)); err != nil {
			return fmt.Errorf("failed to save device id: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get device id: %w", err)
	}

	return id, nil
}

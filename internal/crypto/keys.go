package crypto

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id для ключа локального хранилища
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// KeyLen - длина ключа AES-256
	KeyLen = 32
	// MinSaltLen - минимальная длина соли
	MinSaltLen = 16
)

// DeriveStoreKey выводит ключ шифрования токенов из парольной фразы устройства.
// Соль - идентификатор установки, поэтому одна фраза на разных устройствах даёт разные ключи.
func DeriveStoreKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	if len(salt) < MinSaltLen {
		return nil, fmt.Errorf("salt must be at least %d bytes, got %d", MinSaltLen, len(salt))
	}

	key := argon2.IDKey([]byte(passphrase), salt, Argon2Time, Argon2Memory, Argon2Threads, KeyLen)
	return key, nil
}

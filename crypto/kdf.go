package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const SaltSize = 16

// KDFParams are the argon2id cost parameters stored with a sealed key.
type KDFParams struct {
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memory_kib"`
	Threads   uint8  `json:"threads"`
}

var DefaultKDFParams = KDFParams{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}

func (p KDFParams) Validate() error {
	if p.Time == 0 {
		return errors.New("kdf: time must be > 0")
	}
	if p.MemoryKiB < 8*uint32(p.Threads) {
		return fmt.Errorf("kdf: memory_kib %d too small for %d threads", p.MemoryKiB, p.Threads)
	}
	if p.Threads == 0 {
		return errors.New("kdf: threads must be > 0")
	}
	return nil
}

// DeriveKEK stretches a passphrase into a 32-byte AES-256 key-encryption key.
func DeriveKEK(passphrase, salt []byte, p KDFParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("kdf: empty passphrase")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("kdf: salt must be %d bytes (got %d)", SaltSize, len(salt))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return argon2.IDKey(passphrase, salt, p.Time, p.MemoryKiB, p.Threads, 32), nil
}

func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("kdf: salt: %w", err)
	}
	return salt, nil
}

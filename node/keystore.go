package node

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"etomic.dev/swap/crypto"
	"etomic.dev/swap/swap"
)

const (
	keystoreVersion = "HTLCKSv1"
	keystoreKDF     = "argon2id"
	keystoreWrapAlg = "AES-256-KW"
)

var ErrBadPassphrase = errors.New("keystore: wrong passphrase or corrupted key")

// KeyStoreV1 is the on-disk form of a sealed caller identity: an ed25519
// seed wrapped under a passphrase-derived KEK.
type KeyStoreV1 struct {
	Version        string           `json:"version"`
	Identity       swap.Identity    `json:"identity"`
	KDF            string           `json:"kdf"`
	KDFParams      crypto.KDFParams `json:"kdf_params"`
	SaltHex        string           `json:"salt_hex"`
	WrapAlg        string           `json:"wrap_alg"`
	WrappedSeedHex string           `json:"wrapped_seed_hex"`
}

// Key is an unlocked caller identity.
type Key struct {
	id   swap.Identity
	seed []byte
}

func (k *Key) Identity() swap.Identity { return k.id }

// Sign authorizes data for the engine programID.
func (k *Key) Sign(programID swap.Identity, data []byte) ([]byte, error) {
	return crypto.Sign(k.seed, programID, data)
}

// NewKey builds a key from a 32-byte seed.
func NewKey(seed []byte) (*Key, error) {
	pub, err := crypto.PublicKey(seed)
	if err != nil {
		return nil, err
	}
	return &Key{id: swap.Identity(pub), seed: append([]byte(nil), seed...)}, nil
}

func GenerateKey() (*Key, error) {
	seed := make([]byte, crypto.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("keygen: %w", err)
	}
	return NewKey(seed)
}

// SealKey wraps k under passphrase.
func SealKey(k *Key, passphrase []byte, params crypto.KDFParams) (*KeyStoreV1, error) {
	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, err
	}
	kek, err := crypto.DeriveKEK(passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	wrapped, err := crypto.WrapKey(kek, k.seed)
	if err != nil {
		return nil, err
	}
	return &KeyStoreV1{
		Version:        keystoreVersion,
		Identity:       k.id,
		KDF:            keystoreKDF,
		KDFParams:      params,
		SaltHex:        hex.EncodeToString(salt),
		WrapAlg:        keystoreWrapAlg,
		WrappedSeedHex: hex.EncodeToString(wrapped),
	}, nil
}

// Unseal recovers the key and checks it against the recorded identity.
func (ks *KeyStoreV1) Unseal(passphrase []byte) (*Key, error) {
	salt, err := hex.DecodeString(ks.SaltHex)
	if err != nil {
		return nil, fmt.Errorf("salt_hex: %w", err)
	}
	wrapped, err := hex.DecodeString(ks.WrappedSeedHex)
	if err != nil {
		return nil, fmt.Errorf("wrapped_seed_hex: %w", err)
	}
	kek, err := crypto.DeriveKEK(passphrase, salt, ks.KDFParams)
	if err != nil {
		return nil, err
	}
	seed, err := crypto.UnwrapKey(kek, wrapped)
	if err != nil {
		if errors.Is(err, crypto.ErrKeyWrapIntegrity) {
			return nil, ErrBadPassphrase
		}
		return nil, err
	}
	k, err := NewKey(seed)
	if err != nil {
		return nil, err
	}
	if k.id != ks.Identity {
		return nil, fmt.Errorf("keystore: identity mismatch (%s, want %s)", k.id, ks.Identity)
	}
	return k, nil
}

func WriteKeystore(path string, ks *KeyStoreV1, overwrite bool) error {
	b, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(b, '\n'), overwrite)
}

func ReadKeystore(path string) (*KeyStoreV1, error) {
	raw, err := readFileByPath(path)
	if err != nil {
		return nil, err
	}
	var ks KeyStoreV1
	if err := json.Unmarshal(raw, &ks); err != nil {
		return nil, fmt.Errorf("keystore json: %w", err)
	}
	if ks.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version: %q", ks.Version)
	}
	if !strings.EqualFold(ks.KDF, keystoreKDF) {
		return nil, fmt.Errorf("unsupported kdf: %q", ks.KDF)
	}
	if !strings.EqualFold(ks.WrapAlg, keystoreWrapAlg) {
		return nil, fmt.Errorf("unsupported wrap_alg: %q", ks.WrapAlg)
	}
	return &ks, nil
}

// OpenKeystore reads and unseals the keystore at path.
func OpenKeystore(path string, passphrase []byte) (*Key, error) {
	ks, err := ReadKeystore(path)
	if err != nil {
		return nil, err
	}
	return ks.Unseal(passphrase)
}

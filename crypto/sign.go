package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
)

const SeedSize = ed25519.SeedSize

// signDomain prefixes every signed message so a signature over one engine's
// instruction cannot be replayed against another.
const signDomain = "etomic-swap/instruction/v1"

// SigningDigest is the digest a caller signs to authorize data for the
// engine identified by programID.
func SigningDigest(programID [32]byte, data []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(signDomain))
	h.Write(programID[:])
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// PublicKey returns the 32-byte identity for an ed25519 seed.
func PublicKey(seed []byte) ([32]byte, error) {
	var out [32]byte
	if len(seed) != SeedSize {
		return out, fmt.Errorf("seed must be %d bytes (got %d)", SeedSize, len(seed))
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	copy(out[:], pub)
	return out, nil
}

func Sign(seed []byte, programID [32]byte, data []byte) ([]byte, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes (got %d)", SeedSize, len(seed))
	}
	d := SigningDigest(programID, data)
	return ed25519.Sign(ed25519.NewKeyFromSeed(seed), d[:]), nil
}

func Verify(pub [32]byte, programID [32]byte, data, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	d := SigningDigest(programID, data)
	return ed25519.Verify(pub[:], d[:], sig)
}

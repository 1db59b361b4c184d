package swap

import "crypto/sha256"

// SecretHash is the hash lock committed at Payment time.
func SecretHash(secret [32]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// Commit computes the payment commitment binding an escrow to its release
// conditions. Inputs are fed to a single digest in this fixed order:
// receiver, sender, secret hash, asset class, amount (u64 little-endian).
func Commit(receiver, sender Identity, secretHash [32]byte, assetClass Identity, amount uint64) [32]byte {
	h := sha256.New()
	_, _ = h.Write(receiver[:])
	_, _ = h.Write(sender[:])
	_, _ = h.Write(secretHash[:])
	_, _ = h.Write(assetClass[:])
	_, _ = h.Write(appendU64le(nil, amount))
	var out [32]byte
	h.Sum(out[:0])
	return out
}

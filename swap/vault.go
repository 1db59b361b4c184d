package swap

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
)

// Role tags of the two vaults of a swap.
const (
	RoleFunds = "swap"
	RoleData  = "swap_data"
)

const (
	maxSeedLen  = 32
	maxSeeds    = 16
	addressSalt = "ProgramDerivedAddress"
)

// VaultSeeds returns the derivation inputs of a vault without its bump:
// role tag, lock time (u64le) and secret hash.
func VaultSeeds(role string, lockTime uint64, secretHash [32]byte) [][]byte {
	return [][]byte{
		[]byte(role),
		appendU64le(nil, lockTime),
		append([]byte(nil), secretHash[:]...),
	}
}

// CreateProgramAddress hashes seeds together with the owning engine identity.
// The result is only usable as a key-less vault when it is not a valid
// ed25519 point; otherwise ok is false and the caller must try another bump.
func CreateProgramAddress(seeds [][]byte, programID Identity) (addr Identity, ok bool) {
	if len(seeds) > maxSeeds {
		return addr, false
	}
	h := sha256.New()
	for _, s := range seeds {
		if len(s) > maxSeedLen {
			return addr, false
		}
		_, _ = h.Write(s)
	}
	_, _ = h.Write(programID[:])
	_, _ = h.Write([]byte(addressSalt))
	h.Sum(addr[:0])
	if isOnCurve(addr) {
		return Identity{}, false
	}
	return addr, true
}

func isOnCurve(addr Identity) bool {
	_, err := new(edwards25519.Point).SetBytes(addr[:])
	return err == nil
}

// DeriveVault derives a vault address for role from the swap parameters and
// the caller-chosen bump.
func DeriveVault(programID Identity, role string, lockTime uint64, secretHash [32]byte, bump uint8) (Identity, bool) {
	seeds := append(VaultSeeds(role, lockTime, secretHash), []byte{bump})
	return CreateProgramAddress(seeds, programID)
}

// VerifyVault reports whether candidate is exactly the vault derived for
// role with the given bump.
func VerifyVault(candidate, programID Identity, role string, lockTime uint64, secretHash [32]byte, bump uint8) bool {
	addr, ok := DeriveVault(programID, role, lockTime, secretHash, bump)
	return ok && addr == candidate
}

// FindVaultAddress searches bumps from 255 downward and returns the first
// usable vault address. This is caller-side tooling; Engine only verifies.
func FindVaultAddress(programID Identity, role string, lockTime uint64, secretHash [32]byte) (Identity, uint8, bool) {
	for bump := 255; bump >= 0; bump-- {
		if addr, ok := DeriveVault(programID, role, lockTime, secretHash, uint8(bump)); ok {
			return addr, uint8(bump), true
		}
	}
	return Identity{}, 0, false
}

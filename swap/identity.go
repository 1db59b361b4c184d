package swap

import (
	"fmt"

	"github.com/mr-tron/base58"
)

const IdentitySize = 32

// Identity is a 32-byte public identity: an ed25519 public key, an asset
// class, or a derived vault address.
type Identity [IdentitySize]byte

var (
	// NativeAsset is the asset class of native-value escrows.
	NativeAsset = Identity{}

	// SystemOwner owns every key-less account the engine does not own,
	// including funds vaults.
	SystemOwner = Identity{}
)

func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) String() string {
	return base58.Encode(id[:])
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(b []byte) error {
	parsed, err := ParseIdentity(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIdentity decodes the base58 text form of an identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	if s == "" {
		return id, fmt.Errorf("identity: empty")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("identity: %w", err)
	}
	if len(raw) != IdentitySize {
		return id, fmt.Errorf("identity: expected %d bytes, got %d", IdentitySize, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

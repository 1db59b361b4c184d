package store

import (
	"encoding/binary"
	"fmt"

	"etomic.dev/swap/swap"
)

// Account is the persisted state of one ledger identity. Token balances
// live in their own bucket, keyed by holder and asset class.
type Account struct {
	Owner  swap.Identity
	Native uint64
	Data   []byte
}

// inUse reports whether an allocation would clobber existing state.
func (a Account) inUse() bool {
	return a.Native != 0 || len(a.Data) != 0 || a.Owner != swap.SystemOwner
}

func encodeAccount(a Account) ([]byte, error) {
	if len(a.Data) > 0xffffffff {
		return nil, fmt.Errorf("account: data too large")
	}
	// owner 32 | native u64le | data_len u32le | data
	out := make([]byte, 0, 32+8+4+len(a.Data))
	out = append(out, a.Owner[:]...)
	out = binary.LittleEndian.AppendUint64(out, a.Native)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(a.Data))) // #nosec G115 -- checked above.
	out = append(out, a.Data...)
	return out, nil
}

func decodeAccount(b []byte) (Account, error) {
	if len(b) < 32+8+4 {
		return Account{}, fmt.Errorf("account: truncated")
	}
	var a Account
	copy(a.Owner[:], b[0:32])
	a.Native = binary.LittleEndian.Uint64(b[32:40])
	n := int(binary.LittleEndian.Uint32(b[40:44]))
	if 44+n != len(b) {
		return Account{}, fmt.Errorf("account: bad data_len")
	}
	if n > 0 {
		a.Data = append([]byte(nil), b[44:]...)
	}
	return a, nil
}

// tokenKey is holder(32) || asset(32).
func tokenKey(holder, asset swap.Identity) []byte {
	out := make([]byte, 0, 64)
	out = append(out, holder[:]...)
	return append(out, asset[:]...)
}

func decodeTokenKey(b []byte) (holder, asset swap.Identity, err error) {
	if len(b) != 64 {
		return holder, asset, fmt.Errorf("token key: expected 64 bytes, got %d", len(b))
	}
	copy(holder[:], b[0:32])
	copy(asset[:], b[32:64])
	return holder, asset, nil
}

func decodeU64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("balance: expected 8 bytes, got %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

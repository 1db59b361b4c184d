package node

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"etomic.dev/swap/swap"
)

// Hash is a 32-byte digest with a hex text form.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(b []byte) error {
	parsed, err := ParseHash(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return h, fmt.Errorf("hash: %w", err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("hash: expected 32 bytes, got %d", len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// SwapTerms are the parameters both parties of a swap agree on off-ledger.
// A zero AssetClass means native value.
type SwapTerms struct {
	SecretHash Hash          `json:"secret_hash"`
	LockTime   uint64        `json:"lock_time"`
	Amount     uint64        `json:"amount"`
	Sender     swap.Identity `json:"sender"`
	Receiver   swap.Identity `json:"receiver"`
	AssetClass swap.Identity `json:"asset_class"`
}

func (t SwapTerms) Native() bool { return t.AssetClass.IsZero() }

// Prepared is an instruction together with the vaults it must name.
type Prepared struct {
	Instruction swap.Instruction
	Accounts    swap.Accounts
}

type vaultSet struct {
	accts    swap.Accounts
	bump     uint8
	dataBump uint8
}

// FindVaults runs the bump search for both vaults of a swap.
func FindVaults(programID swap.Identity, lockTime uint64, secretHash [32]byte) (swap.Accounts, uint8, uint8, error) {
	v, err := findVaults(programID, lockTime, secretHash)
	if err != nil {
		return swap.Accounts{}, 0, 0, err
	}
	return v.accts, v.bump, v.dataBump, nil
}

func findVaults(programID swap.Identity, lockTime uint64, secretHash [32]byte) (vaultSet, error) {
	var (
		v  vaultSet
		ok bool
	)
	if v.accts.FundsVault, v.bump, ok = swap.FindVaultAddress(programID, swap.RoleFunds, lockTime, secretHash); !ok {
		return v, errors.New("no usable funds vault bump")
	}
	if v.accts.DataVault, v.dataBump, ok = swap.FindVaultAddress(programID, swap.RoleData, lockTime, secretHash); !ok {
		return v, errors.New("no usable data vault bump")
	}
	return v, nil
}

// BuildPayment prepares the escrow for terms. Token terms produce a
// TokenPayment.
func BuildPayment(programID swap.Identity, t SwapTerms, funding uint64) (*Prepared, error) {
	v, err := findVaults(programID, t.LockTime, t.SecretHash)
	if err != nil {
		return nil, err
	}
	p := &Prepared{Accounts: v.accts}
	if t.Native() {
		p.Instruction = &swap.Payment{
			SecretHash:    t.SecretHash,
			LockTime:      t.LockTime,
			Amount:        t.Amount,
			Receiver:      t.Receiver,
			FundingAmount: funding,
			VaultBump:     v.bump,
			VaultDataBump: v.dataBump,
		}
	} else {
		p.Instruction = &swap.TokenPayment{
			SecretHash:    t.SecretHash,
			LockTime:      t.LockTime,
			Amount:        t.Amount,
			Receiver:      t.Receiver,
			AssetClass:    t.AssetClass,
			FundingAmount: funding,
			VaultBump:     v.bump,
			VaultDataBump: v.dataBump,
		}
	}
	return p, nil
}

// BuildSpend prepares the receiver's claim. secret must open t.SecretHash.
func BuildSpend(programID swap.Identity, t SwapTerms, secret [32]byte) (*Prepared, error) {
	if swap.SecretHash(secret) != t.SecretHash {
		return nil, fmt.Errorf("secret does not match secret_hash")
	}
	v, err := findVaults(programID, t.LockTime, t.SecretHash)
	if err != nil {
		return nil, err
	}
	return &Prepared{
		Accounts: v.accts,
		Instruction: &swap.ReceiverSpend{
			Secret:        secret,
			LockTime:      t.LockTime,
			Amount:        t.Amount,
			Sender:        t.Sender,
			AssetClass:    t.AssetClass,
			VaultBump:     v.bump,
			VaultDataBump: v.dataBump,
		},
	}, nil
}

func BuildRefund(programID swap.Identity, t SwapTerms) (*Prepared, error) {
	v, err := findVaults(programID, t.LockTime, t.SecretHash)
	if err != nil {
		return nil, err
	}
	return &Prepared{
		Accounts: v.accts,
		Instruction: &swap.SenderRefund{
			SecretHash:    t.SecretHash,
			LockTime:      t.LockTime,
			Amount:        t.Amount,
			Receiver:      t.Receiver,
			AssetClass:    t.AssetClass,
			VaultBump:     v.bump,
			VaultDataBump: v.dataBump,
		},
	}, nil
}

package store

import (
	"encoding/binary"
	"fmt"

	"etomic.dev/swap/swap"

	bolt "go.etcd.io/bbolt"
)

// txView is the engine's view of the ledger inside one update transaction.
type txView struct {
	tx        *bolt.Tx
	sub       Submission
	signers   []swap.Identity
	now       uint64
	programID swap.Identity
}

func (v *txView) Caller() swap.Identity { return v.sub.Caller }

func (v *txView) CurrentTime() uint64 { return v.now }

func (v *txView) VerifyRole(account swap.Identity, required swap.AccountRole) bool {
	if required&swap.AccountSigner != 0 && !contains(v.signers, account) {
		return false
	}
	if required&swap.AccountWritable != 0 {
		if !v.named(account) || contains(v.sub.ReadOnly, account) {
			return false
		}
	}
	if required&(swap.AccountEngineOwned|swap.AccountSystemOwned) != 0 {
		a, _, err := getAccount(v.tx, account)
		if err != nil {
			return false
		}
		if required&swap.AccountEngineOwned != 0 && a.Owner != v.programID {
			return false
		}
		if required&swap.AccountSystemOwned != 0 && a.Owner != swap.SystemOwner {
			return false
		}
	}
	return true
}

func (v *txView) named(account swap.Identity) bool {
	return account == v.sub.Caller || account == v.sub.Accounts.DataVault || account == v.sub.Accounts.FundsVault
}

func (v *txView) ReadRecord(account swap.Identity) ([]byte, error) {
	a, ok, err := getAccount(v.tx, account)
	if err != nil {
		return nil, err
	}
	if !ok || len(a.Data) == 0 {
		return nil, swap.ErrNoAccountData
	}
	return a.Data, nil
}

func contains(ids []swap.Identity, id swap.Identity) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// applyEffect writes e into tx and returns its journal sequence number.
func applyEffect(tx *bolt.Tx, programID swap.Identity, e *swap.Effect, now uint64) (uint64, error) {
	if e.Allocation != nil {
		al := e.Allocation
		a, _, err := getAccount(tx, al.Account)
		if err != nil {
			return 0, err
		}
		if a.inUse() {
			return 0, fmt.Errorf("%w: %s", swap.ErrAccountInUse, al.Account)
		}
		if err := debit(tx, al.Payer, swap.NativeAsset, al.Funding); err != nil {
			return 0, err
		}
		if err := putAccount(tx, al.Account, Account{
			Owner:  programID,
			Native: al.Funding,
			Data:   make([]byte, al.Space),
		}); err != nil {
			return 0, err
		}
	}

	dv, ok, err := getAccount(tx, e.DataVault)
	if err != nil {
		return 0, err
	}
	if !ok || dv.Owner != programID {
		return 0, fmt.Errorf("data vault %s not owned by program", e.DataVault)
	}
	if err := swap.StorePaymentRecord(dv.Data, e.Record); err != nil {
		return 0, err
	}
	if err := putAccount(tx, e.DataVault, dv); err != nil {
		return 0, err
	}

	for _, m := range e.Movements {
		if err := debit(tx, m.From, m.Asset, m.Amount); err != nil {
			return 0, err
		}
		if err := credit(tx, m.To, m.Asset, m.Amount); err != nil {
			return 0, err
		}
	}

	if e.Secret != nil {
		h := swap.SecretHash(*e.Secret)
		if err := tx.Bucket(bucketSecrets).Put(h[:], append([]byte(nil), e.Secret[:]...)); err != nil {
			return 0, err
		}
	}

	bj := tx.Bucket(bucketJournal)
	seq, err := bj.NextSequence()
	if err != nil {
		return 0, err
	}
	val, err := encodeJournalEntry(JournalEntry{
		Time:       now,
		Tag:        e.Tag,
		Caller:     e.Caller,
		DataVault:  e.DataVault,
		FundsVault: e.FundsVault,
		State:      e.Record.State,
		Movements:  e.Movements,
	})
	if err != nil {
		return 0, err
	}
	if err := bj.Put(journalKey(seq), val); err != nil {
		return 0, err
	}
	return seq, nil
}

func getAccount(tx *bolt.Tx, id swap.Identity) (Account, bool, error) {
	v := tx.Bucket(bucketAccounts).Get(id[:])
	if v == nil {
		return Account{Owner: swap.SystemOwner}, false, nil
	}
	a, err := decodeAccount(v)
	if err != nil {
		return Account{}, false, fmt.Errorf("account %s: %w", id, err)
	}
	return a, true, nil
}

func putAccount(tx *bolt.Tx, id swap.Identity, a Account) error {
	val, err := encodeAccount(a)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketAccounts).Put(id[:], val)
}

func balance(tx *bolt.Tx, id, asset swap.Identity) (uint64, error) {
	if asset == swap.NativeAsset {
		a, _, err := getAccount(tx, id)
		return a.Native, err
	}
	v := tx.Bucket(bucketTokens).Get(tokenKey(id, asset))
	if v == nil {
		return 0, nil
	}
	return decodeU64(v)
}

func setBalance(tx *bolt.Tx, id, asset swap.Identity, n uint64) error {
	if asset == swap.NativeAsset {
		a, _, err := getAccount(tx, id)
		if err != nil {
			return err
		}
		a.Native = n
		return putAccount(tx, id, a)
	}
	var v [8]byte
	binary.LittleEndian.PutUint64(v[:], n)
	return tx.Bucket(bucketTokens).Put(tokenKey(id, asset), v[:])
}

func debit(tx *bolt.Tx, id, asset swap.Identity, amount uint64) error {
	if amount == 0 {
		return nil
	}
	have, err := balance(tx, id, asset)
	if err != nil {
		return err
	}
	if have < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", swap.ErrInsufficientFunds, id, have, assetName(asset), amount)
	}
	return setBalance(tx, id, asset, have-amount)
}

func credit(tx *bolt.Tx, id, asset swap.Identity, amount uint64) error {
	if amount == 0 {
		return nil
	}
	have, err := balance(tx, id, asset)
	if err != nil {
		return err
	}
	if have > ^uint64(0)-amount {
		return fmt.Errorf("%w: %s", swap.ErrBalanceOverflow, id)
	}
	return setBalance(tx, id, asset, have+amount)
}

func assetName(asset swap.Identity) string {
	if asset == swap.NativeAsset {
		return "native"
	}
	return asset.String()
}

func identityKey(b []byte) (swap.Identity, error) {
	var id swap.Identity
	if len(b) != swap.IdentitySize {
		return id, fmt.Errorf("account key: expected %d bytes, got %d", swap.IdentitySize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

func seqFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k)
}

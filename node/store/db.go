package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"etomic.dev/swap/crypto"
	"etomic.dev/swap/swap"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketAccounts = []byte("accounts_by_id")
	bucketTokens   = []byte("token_balances")
	bucketSecrets  = []byte("secrets_by_hash")
	bucketJournal  = []byte("journal_by_seq")
	bucketMeta     = []byte("meta")
)

// DB is a single-writer ledger hosting one swap engine. Every instruction
// runs inside one bbolt update transaction, so an effect is either applied
// in full or not at all.
type DB struct {
	dir      string
	db       *bolt.DB
	engine   *swap.Engine
	manifest *Manifest
}

// Open opens or initializes the ledger for network under datadir. An
// existing ledger must have been created for the same program identity.
func Open(datadir string, network string, programID swap.Identity) (*DB, error) {
	if datadir == "" {
		return nil, fmt.Errorf("datadir required")
	}
	if network == "" {
		return nil, fmt.Errorf("network required")
	}
	if programID.IsZero() {
		return nil, fmt.Errorf("program_id required")
	}

	dir := NetworkDir(datadir, network)
	if err := ensureDir(filepath.Join(dir, "db")); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, "db", "ledger.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}

	d := &DB{dir: dir, db: bdb, engine: swap.NewEngine(programID)}

	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketAccounts, bucketTokens, bucketSecrets, bucketJournal, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	m, err := readManifest(dir)
	switch {
	case os.IsNotExist(err):
		m = &Manifest{SchemaVersion: SchemaVersionV1, Network: network, ProgramID: programID.String()}
		if err := writeManifestAtomic(dir, m); err != nil {
			_ = bdb.Close()
			return nil, err
		}
		log.Infof("Initialized ledger %s for program %s", dir, programID)
	case err != nil:
		_ = bdb.Close()
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if m.SchemaVersion > SchemaVersionV1 {
		_ = bdb.Close()
		return nil, fmt.Errorf("manifest schema_version %d > supported %d", m.SchemaVersion, SchemaVersionV1)
	}
	if m.ProgramID != programID.String() {
		_ = bdb.Close()
		return nil, fmt.Errorf("manifest program_id %s, want %s", m.ProgramID, programID)
	}
	d.manifest = m
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Dir() string { return d.dir }

func (d *DB) Engine() *swap.Engine { return d.engine }

func (d *DB) Manifest() *Manifest {
	if d == nil {
		return nil
	}
	return d.manifest
}

// Signature authorizes a submission on behalf of Signer.
type Signature struct {
	Signer swap.Identity
	Sig    []byte
}

// Submission is one instruction as presented to the ledger: the caller,
// the accounts it names, the raw instruction bytes and signatures over
// crypto.SigningDigest(programID, Data).
type Submission struct {
	Caller     swap.Identity
	Signatures []Signature
	ReadOnly   []swap.Identity
	Accounts   swap.Accounts
	Data       []byte
}

// signers returns the identities whose signatures over sub verify.
func (sub Submission) signers(programID swap.Identity) []swap.Identity {
	out := make([]swap.Identity, 0, len(sub.Signatures))
	for _, s := range sub.Signatures {
		if crypto.Verify(s.Signer, programID, sub.Data, s.Sig) {
			out = append(out, s.Signer)
		}
	}
	return out
}

// Execute runs the engine on sub at time now and applies the resulting
// effect, its journal entry and Stats in one transaction. Engine
// rejections are *swap.SwapError values; ledger failures wrap
// swap.ErrAccountInUse, swap.ErrInsufficientFunds or
// swap.ErrBalanceOverflow. A nil error means the transaction committed.
func (d *DB) Execute(sub Submission, now uint64) (*swap.Effect, error) {
	var (
		eff *swap.Effect
		seq uint64
	)
	err := d.db.Update(func(tx *bolt.Tx) error {
		view := &txView{
			tx:        tx,
			sub:       sub,
			signers:   sub.signers(d.engine.ProgramID()),
			now:       now,
			programID: d.engine.ProgramID(),
		}
		e, err := d.engine.ExecuteBytes(view, sub.Accounts, sub.Data)
		if err != nil {
			return err
		}
		if seq, err = applyEffect(tx, d.engine.ProgramID(), e, now); err != nil {
			return err
		}
		st, err := readStats(tx)
		if err != nil {
			return err
		}
		st.AppliedCount++
		st.LastAppliedOp = swap.TagName(e.Tag)
		st.LastAppliedVault = e.DataVault.String()
		st.LastAppliedTime = now
		if err := writeStats(tx, st); err != nil {
			return err
		}
		eff = e
		return nil
	})
	if err != nil {
		log.Debugf("Rejected %s from %s: %v", opName(sub.Data), sub.Caller, err)
		return nil, err
	}
	log.Infof("Applied %s seq=%d data_vault=%s state=%s", swap.TagName(eff.Tag), seq, eff.DataVault, eff.Record.State)
	return eff, nil
}

func opName(data []byte) string {
	if len(data) == 0 {
		return "EMPTY"
	}
	return swap.TagName(data[0])
}

// Credit adds amount of asset to id. It is the devnet faucet and the way
// tests seed balances.
func (d *DB) Credit(id, asset swap.Identity, amount uint64) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return credit(tx, id, asset, amount)
	})
}

func (d *DB) GetAccount(id swap.Identity) (Account, bool, error) {
	var (
		out Account
		ok  bool
	)
	err := d.db.View(func(tx *bolt.Tx) error {
		var err error
		out, ok, err = getAccount(tx, id)
		return err
	})
	return out, ok, err
}

func (d *DB) Balance(id, asset swap.Identity) (uint64, error) {
	var out uint64
	err := d.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = balance(tx, id, asset)
		return err
	})
	return out, err
}

// PaymentRecord returns the record held by a data vault.
func (d *DB) PaymentRecord(dataVault swap.Identity) (*swap.PaymentRecord, bool, error) {
	a, ok, err := d.GetAccount(dataVault)
	if err != nil || !ok || len(a.Data) == 0 {
		return nil, false, err
	}
	r, err := swap.ParsePaymentRecord(a.Data)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// Secret returns the preimage disclosed for secretHash by a receiver spend.
func (d *DB) Secret(secretHash [32]byte) ([32]byte, bool, error) {
	var (
		out [32]byte
		ok  bool
	)
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSecrets).Get(secretHash[:])
		if v == nil {
			return nil
		}
		if len(v) != 32 {
			return fmt.Errorf("secret: expected 32 bytes, got %d", len(v))
		}
		copy(out[:], v)
		ok = true
		return nil
	})
	return out, ok, err
}

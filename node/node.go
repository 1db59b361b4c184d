package node

import (
	"errors"
	"fmt"
	"time"

	"etomic.dev/swap/node/store"
	"etomic.dev/swap/swap"

	"github.com/decred/slog"
)

var ErrCreditDisabled = errors.New("credit is disabled by config")

// Node submits signed swap instructions to the persistent ledger under
// data_dir.
type Node struct {
	cfg Config
	db  *store.DB
	log slog.Logger
	now func() uint64
}

// Open validates cfg and opens the ledger. logging may be nil.
func Open(cfg Config, logging *Logging) (*Node, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	db, err := store.Open(cfg.DataDir, cfg.Network, cfg.programID())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Node{
		cfg: cfg,
		db:  db,
		log: logging.Logger(SubsystemNode),
		now: unixNow,
	}, nil
}

func unixNow() uint64 {
	// #nosec G115 -- wall clock is after 1970.
	return uint64(time.Now().Unix())
}

func (n *Node) Close() error { return n.db.Close() }

func (n *Node) Config() Config { return n.cfg }

func (n *Node) Store() *store.DB { return n.db }

func (n *Node) ProgramID() swap.Identity { return n.db.Engine().ProgramID() }

// SetClock replaces the ledger clock. Tests and replay tools use it.
func (n *Node) SetClock(now func() uint64) { n.now = now }

// Submit signs p with key and executes it at the current time.
func (n *Node) Submit(key *Key, p *Prepared) (*swap.Effect, error) {
	data := p.Instruction.Encode()
	sig, err := key.Sign(n.ProgramID(), data)
	if err != nil {
		return nil, err
	}
	sub := store.Submission{
		Caller:     key.Identity(),
		Signatures: []store.Signature{{Signer: key.Identity(), Sig: sig}},
		Accounts:   p.Accounts,
		Data:       data,
	}
	op := swap.TagName(p.Instruction.Tag())
	eff, err := n.db.Execute(sub, n.now())
	if err != nil {
		if code, ok := swap.CodeOf(err); ok {
			n.log.Warnf("%s by %s rejected: code=%d %v", op, key.Identity(), uint32(code), err)
		} else {
			n.log.Warnf("%s by %s failed: %v", op, key.Identity(), err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	n.log.Infof("%s by %s accepted: data_vault=%s state=%s", op, key.Identity(), eff.DataVault, eff.Record.State)
	if eff.Secret != nil {
		n.log.Infof("Secret disclosed for secret_hash=%s: %s", Hash(swap.SecretHash(*eff.Secret)), Hash(*eff.Secret))
	}
	return eff, nil
}

// Pay escrows t. The caller must be the sender named in t. funding of
// zero means the configured default.
func (n *Node) Pay(key *Key, t SwapTerms, funding uint64) (*swap.Effect, error) {
	if t.Sender != key.Identity() {
		return nil, fmt.Errorf("pay: terms name sender %s, key is %s", t.Sender, key.Identity())
	}
	if funding == 0 {
		funding = n.cfg.DefaultFunding
	}
	p, err := BuildPayment(n.ProgramID(), t, funding)
	if err != nil {
		return nil, err
	}
	return n.Submit(key, p)
}

func (n *Node) Spend(key *Key, t SwapTerms, secret [32]byte) (*swap.Effect, error) {
	if t.Receiver != key.Identity() {
		return nil, fmt.Errorf("spend: terms name receiver %s, key is %s", t.Receiver, key.Identity())
	}
	p, err := BuildSpend(n.ProgramID(), t, secret)
	if err != nil {
		return nil, err
	}
	return n.Submit(key, p)
}

func (n *Node) Refund(key *Key, t SwapTerms) (*swap.Effect, error) {
	if t.Sender != key.Identity() {
		return nil, fmt.Errorf("refund: terms name sender %s, key is %s", t.Sender, key.Identity())
	}
	p, err := BuildRefund(n.ProgramID(), t)
	if err != nil {
		return nil, err
	}
	return n.Submit(key, p)
}

// Credit is the devnet faucet.
func (n *Node) Credit(id, asset swap.Identity, amount uint64) error {
	if !n.cfg.AllowCredit {
		return ErrCreditDisabled
	}
	if err := n.db.Credit(id, asset, amount); err != nil {
		return err
	}
	n.log.Infof("Credited %d of %s to %s", amount, assetLabel(asset), id)
	return nil
}

// Status returns the persisted record for t's data vault.
func (n *Node) Status(t SwapTerms) (*swap.PaymentRecord, swap.Accounts, bool, error) {
	accts, _, _, err := FindVaults(n.ProgramID(), t.LockTime, t.SecretHash)
	if err != nil {
		return nil, accts, false, err
	}
	r, ok, err := n.db.PaymentRecord(accts.DataVault)
	return r, accts, ok, err
}

// DisclosedSecret returns the secret revealed on this ledger for secretHash.
func (n *Node) DisclosedSecret(secretHash Hash) (Hash, bool, error) {
	s, ok, err := n.db.Secret(secretHash)
	return Hash(s), ok, err
}

func assetLabel(asset swap.Identity) string {
	if asset.IsZero() {
		return "native"
	}
	return asset.String()
}

package swap

import (
	"fmt"
	"maps"
	"sync"
)

type memAccount struct {
	owner  Identity
	native uint64
	data   []byte
}

type tokenSlot struct {
	holder Identity
	asset  Identity
}

// Call is one instruction submitted to a MemLedger.
type Call struct {
	Caller Identity
	// Unsigned submits without the caller's signature.
	Unsigned bool
	ReadOnly []Identity
	Accounts Accounts
	Data     []byte
}

// MemLedger is an in-memory ledger hosting one engine. It applies each
// effect to a copy of its state and swaps the copy in only on success.
type MemLedger struct {
	mu       sync.Mutex
	engine   *Engine
	now      uint64
	accounts map[Identity]memAccount
	tokens   map[tokenSlot]uint64
	secrets  map[[32]byte][32]byte
}

func NewMemLedger(engine *Engine) *MemLedger {
	return &MemLedger{
		engine:   engine,
		accounts: make(map[Identity]memAccount),
		tokens:   make(map[tokenSlot]uint64),
		secrets:  make(map[[32]byte][32]byte),
	}
}

func (l *MemLedger) SetTime(now uint64) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

func (l *MemLedger) Credit(id, asset Identity, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state().credit(id, asset, amount)
}

func (l *MemLedger) Balance(id, asset Identity) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state().balance(id, asset)
}

// Record returns the payment record held by dataVault.
func (l *MemLedger) Record(dataVault Identity) (*PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[dataVault]
	if !ok || len(a.data) == 0 {
		return nil, ErrNoAccountData
	}
	return ParsePaymentRecord(a.data)
}

// Secret returns the preimage disclosed for secretHash, if any.
func (l *MemLedger) Secret(secretHash [32]byte) ([32]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.secrets[secretHash]
	return s, ok
}

// Submit executes c and applies its effect. On any error the ledger is
// unchanged.
func (l *MemLedger) Submit(c Call) (*Effect, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	view := &memView{l: l, call: c}
	eff, err := l.engine.ExecuteBytes(view, c.Accounts, c.Data)
	if err != nil {
		return nil, err
	}

	st := l.state().clone()
	if err := st.apply(l.engine.ProgramID(), eff); err != nil {
		return nil, err
	}
	l.accounts, l.tokens, l.secrets = st.accounts, st.tokens, st.secrets
	return eff, nil
}

type memState struct {
	accounts map[Identity]memAccount
	tokens   map[tokenSlot]uint64
	secrets  map[[32]byte][32]byte
}

func (l *MemLedger) state() *memState {
	return &memState{accounts: l.accounts, tokens: l.tokens, secrets: l.secrets}
}

func (s *memState) clone() *memState {
	out := &memState{
		accounts: make(map[Identity]memAccount, len(s.accounts)),
		tokens:   maps.Clone(s.tokens),
		secrets:  maps.Clone(s.secrets),
	}
	for id, a := range s.accounts {
		a.data = append([]byte(nil), a.data...)
		out.accounts[id] = a
	}
	return out
}

func (s *memState) apply(programID Identity, e *Effect) error {
	if al := e.Allocation; al != nil {
		if a, ok := s.accounts[al.Account]; ok && (a.native != 0 || len(a.data) != 0 || a.owner != SystemOwner) {
			return fmt.Errorf("%w: %s", ErrAccountInUse, al.Account)
		}
		if err := s.debit(al.Payer, NativeAsset, al.Funding); err != nil {
			return err
		}
		s.accounts[al.Account] = memAccount{owner: programID, native: al.Funding, data: make([]byte, al.Space)}
	}

	dv := s.accounts[e.DataVault]
	if dv.owner != programID {
		return fmt.Errorf("data vault %s not owned by program", e.DataVault)
	}
	if err := StorePaymentRecord(dv.data, e.Record); err != nil {
		return err
	}
	s.accounts[e.DataVault] = dv

	for _, m := range e.Movements {
		if err := s.debit(m.From, m.Asset, m.Amount); err != nil {
			return err
		}
		if err := s.credit(m.To, m.Asset, m.Amount); err != nil {
			return err
		}
	}
	if e.Secret != nil {
		s.secrets[SecretHash(*e.Secret)] = *e.Secret
	}
	return nil
}

func (s *memState) balance(id, asset Identity) uint64 {
	if asset == NativeAsset {
		return s.accounts[id].native
	}
	return s.tokens[tokenSlot{id, asset}]
}

func (s *memState) set(id, asset Identity, n uint64) {
	if asset == NativeAsset {
		a := s.accounts[id]
		a.native = n
		s.accounts[id] = a
		return
	}
	s.tokens[tokenSlot{id, asset}] = n
}

func (s *memState) debit(id, asset Identity, amount uint64) error {
	have := s.balance(id, asset)
	if have < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, id, have, amount)
	}
	s.set(id, asset, have-amount)
	return nil
}

func (s *memState) credit(id, asset Identity, amount uint64) error {
	have := s.balance(id, asset)
	if _, ok := addU64(have, amount); !ok {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, id)
	}
	s.set(id, asset, have+amount)
	return nil
}

// memView is the engine's view of a MemLedger during one Submit. The
// ledger lock is held for its lifetime.
type memView struct {
	l    *MemLedger
	call Call
}

func (v *memView) Caller() Identity    { return v.call.Caller }
func (v *memView) CurrentTime() uint64 { return v.l.now }

func (v *memView) VerifyRole(account Identity, required AccountRole) bool {
	c := v.call
	if required&AccountSigner != 0 && (c.Unsigned || account != c.Caller) {
		return false
	}
	if required&AccountWritable != 0 {
		if account != c.Caller && account != c.Accounts.DataVault && account != c.Accounts.FundsVault {
			return false
		}
		for _, ro := range c.ReadOnly {
			if ro == account {
				return false
			}
		}
	}
	owner := v.l.accounts[account].owner
	if required&AccountEngineOwned != 0 && owner != v.l.engine.ProgramID() {
		return false
	}
	if required&AccountSystemOwned != 0 && owner != SystemOwner {
		return false
	}
	return true
}

func (v *memView) ReadRecord(account Identity) ([]byte, error) {
	a, ok := v.l.accounts[account]
	if !ok || len(a.data) == 0 {
		return nil, ErrNoAccountData
	}
	return append([]byte(nil), a.data...), nil
}

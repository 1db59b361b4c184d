package swap

import (
	"errors"
	"testing"
)

// testLedger is a minimal LedgerView that applies effects in place.
type testLedger struct {
	programID Identity
	caller    Identity
	now       uint64
	unsigned  bool
	readOnly  map[Identity]bool
	owners    map[Identity]Identity
	records   map[Identity][]byte
}

func newTestLedger(programID Identity) *testLedger {
	return &testLedger{
		programID: programID,
		readOnly:  map[Identity]bool{},
		owners:    map[Identity]Identity{},
		records:   map[Identity][]byte{},
	}
}

func (l *testLedger) Caller() Identity    { return l.caller }
func (l *testLedger) CurrentTime() uint64 { return l.now }

func (l *testLedger) VerifyRole(account Identity, required AccountRole) bool {
	if required&AccountSigner != 0 && (l.unsigned || account != l.caller) {
		return false
	}
	if required&AccountWritable != 0 && l.readOnly[account] {
		return false
	}
	if required&AccountEngineOwned != 0 && l.owners[account] != l.programID {
		return false
	}
	if required&AccountSystemOwned != 0 && l.owners[account] != SystemOwner {
		return false
	}
	return true
}

func (l *testLedger) ReadRecord(account Identity) ([]byte, error) {
	b, ok := l.records[account]
	if !ok {
		return nil, ErrNoAccountData
	}
	return b, nil
}

func (l *testLedger) apply(e *Effect) {
	if e.Allocation != nil {
		l.owners[e.Allocation.Account] = l.programID
	}
	l.records[e.DataVault] = e.Record.Bytes()
}

type swapFixture struct {
	engine   *Engine
	ledger   *testLedger
	sender   Identity
	receiver Identity
	secret   [32]byte
	lockTime uint64
	amount   uint64
	asset    Identity
	accts    Accounts
	bump     uint8
	dataBump uint8
}

// newSwapFixture reproduces the zero-secret, lock_time=1, amount=10000
// native swap.
func newSwapFixture(t *testing.T) *swapFixture {
	t.Helper()
	pid := testIdentity(0x01)
	f := &swapFixture{
		engine:   NewEngine(pid),
		ledger:   newTestLedger(pid),
		sender:   testIdentity(0x40),
		receiver: testIdentity(0x80),
		lockTime: 1,
		amount:   10000,
		asset:    NativeAsset,
	}
	sh := SecretHash(f.secret)
	var ok bool
	if f.accts.FundsVault, f.bump, ok = FindVaultAddress(pid, RoleFunds, f.lockTime, sh); !ok {
		t.Fatalf("no funds vault")
	}
	if f.accts.DataVault, f.dataBump, ok = FindVaultAddress(pid, RoleData, f.lockTime, sh); !ok {
		t.Fatalf("no data vault")
	}
	return f
}

func (f *swapFixture) payment() *Payment {
	return &Payment{
		SecretHash:    SecretHash(f.secret),
		LockTime:      f.lockTime,
		Amount:        f.amount,
		Receiver:      f.receiver,
		FundingAmount: 100,
		VaultBump:     f.bump,
		VaultDataBump: f.dataBump,
	}
}

func (f *swapFixture) spend() *ReceiverSpend {
	return &ReceiverSpend{
		Secret:        f.secret,
		LockTime:      f.lockTime,
		Amount:        f.amount,
		Sender:        f.sender,
		AssetClass:    f.asset,
		VaultBump:     f.bump,
		VaultDataBump: f.dataBump,
	}
}

func (f *swapFixture) refund() *SenderRefund {
	return &SenderRefund{
		SecretHash:    SecretHash(f.secret),
		LockTime:      f.lockTime,
		Amount:        f.amount,
		Receiver:      f.receiver,
		AssetClass:    f.asset,
		VaultBump:     f.bump,
		VaultDataBump: f.dataBump,
	}
}

func (f *swapFixture) exec(t *testing.T, caller Identity, ix Instruction) (*Effect, error) {
	t.Helper()
	f.ledger.caller = caller
	e, err := f.engine.Execute(f.ledger, f.accts, ix)
	if err == nil {
		f.ledger.apply(e)
	}
	return e, err
}

func (f *swapFixture) mustPay(t *testing.T) {
	t.Helper()
	if _, err := f.exec(t, f.sender, f.payment()); err != nil {
		t.Fatalf("Payment: %v", err)
	}
}

func (f *swapFixture) record(t *testing.T) *PaymentRecord {
	t.Helper()
	r, err := ParsePaymentRecord(f.ledger.records[f.accts.DataVault])
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return r
}

func TestEngine_PaymentSpendThenRefund(t *testing.T) {
	f := newSwapFixture(t)

	e, err := f.exec(t, f.sender, f.payment())
	if err != nil {
		t.Fatalf("Payment: %v", err)
	}
	if e.Allocation == nil || e.Allocation.Space != PaymentRecordSize || e.Allocation.Account != f.accts.DataVault {
		t.Fatalf("allocation=%+v", e.Allocation)
	}
	if len(e.Movements) != 1 || e.Movements[0].To != f.accts.FundsVault || e.Movements[0].Amount != f.amount+100 {
		t.Fatalf("payment movements=%+v", e.Movements)
	}
	r := f.record(t)
	want := Commit(f.receiver, f.sender, SecretHash(f.secret), NativeAsset, f.amount)
	if r.Commitment != want || r.LockTime != 1 || r.State != StateSent {
		t.Fatalf("record=%+v", r)
	}

	e, err = f.exec(t, f.receiver, f.spend())
	if err != nil {
		t.Fatalf("ReceiverSpend: %v", err)
	}
	if len(e.Movements) != 1 {
		t.Fatalf("spend movements=%+v", e.Movements)
	}
	m := e.Movements[0]
	if m.From != f.accts.FundsVault || m.To != f.receiver || m.Amount != f.amount || m.Asset != NativeAsset {
		t.Fatalf("spend movement=%+v", m)
	}
	if e.Secret == nil || *e.Secret != f.secret {
		t.Fatalf("secret not disclosed")
	}
	if f.record(t).State != StateReceiverSpent {
		t.Fatalf("state=%s", f.record(t).State)
	}

	f.ledger.now = 100
	_, err = f.exec(t, f.sender, f.refund())
	mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_STATE)
}

func TestEngine_RefundBeforeLockTime(t *testing.T) {
	f := newSwapFixture(t)
	f.mustPay(t)

	f.ledger.now = 0
	_, err := f.exec(t, f.sender, f.refund())
	mustSwapErrCode(t, err, ERR_WAIT_FOR_LOCK_TIME)
	if !IsRetriable(err) {
		t.Fatalf("lock-time rejection should be retriable")
	}
	if f.record(t).State != StateSent {
		t.Fatalf("rejected refund changed state")
	}

	f.ledger.now = f.lockTime
	e, err := f.exec(t, f.sender, f.refund())
	if err != nil {
		t.Fatalf("refund at lock time: %v", err)
	}
	if m := e.Movements[0]; m.To != f.sender || m.Amount != f.amount {
		t.Fatalf("refund movement=%+v", m)
	}
	if e.Secret != nil {
		t.Fatalf("refund disclosed a secret")
	}
	if f.record(t).State != StateSenderRefunded {
		t.Fatalf("state=%s", f.record(t).State)
	}

	_, err = f.exec(t, f.receiver, f.spend())
	mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_STATE)
}

func TestEngine_SpendHasNoTimeGuard(t *testing.T) {
	f := newSwapFixture(t)
	f.mustPay(t)
	f.ledger.now = 1 << 40
	if _, err := f.exec(t, f.receiver, f.spend()); err != nil {
		t.Fatalf("late spend: %v", err)
	}
}

func TestEngine_DoubleSpend(t *testing.T) {
	f := newSwapFixture(t)
	f.mustPay(t)
	if _, err := f.exec(t, f.receiver, f.spend()); err != nil {
		t.Fatalf("spend: %v", err)
	}
	_, err := f.exec(t, f.receiver, f.spend())
	mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_STATE)
}

func TestEngine_CommitmentMismatch(t *testing.T) {
	f := newSwapFixture(t)
	f.mustPay(t)

	s := f.spend()
	s.Amount++
	_, err := f.exec(t, f.receiver, s)
	mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_HASH)

	s = f.spend()
	s.Sender = testIdentity(0x55)
	_, err = f.exec(t, f.receiver, s)
	mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_HASH)

	// The receiver cannot refund: the commitment binds the caller as sender.
	f.ledger.now = 10
	_, err = f.exec(t, f.receiver, f.refund())
	mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_HASH)

	// Commitment is checked before the lock time.
	f.ledger.now = 0
	r := f.refund()
	r.Amount = 1
	_, err = f.exec(t, f.sender, r)
	mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_HASH)
}

func TestEngine_WrongSecretFailsCommitment(t *testing.T) {
	for i := 0; i < 4; i++ {
		f := newSwapFixture(t)
		f.mustPay(t)
		s := f.spend()
		s.Secret[i] ^= 0x01
		_, err := f.exec(t, f.receiver, s)
		mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_HASH)
		code, _ := CodeOf(err)
		if code.Class() != ClassCommitment {
			t.Fatalf("byte %d: class=%s, want %s", i, code.Class(), ClassCommitment)
		}
		if got := f.record(t).State; got != StateSent {
			t.Fatalf("byte %d: state=%s after rejected spend", i, got)
		}
	}
}

func TestEngine_ReleaseVaultChecks(t *testing.T) {
	f := newSwapFixture(t)
	f.mustPay(t)

	s := f.spend()
	s.VaultBump--
	_, err := f.exec(t, f.receiver, s)
	mustSwapErrCode(t, err, ERR_INVALID_VAULT_DERIVATION)

	s = f.spend()
	s.VaultDataBump--
	_, err = f.exec(t, f.receiver, s)
	mustSwapErrCode(t, err, ERR_INVALID_VAULT_DERIVATION)

	// A wrong secret is reported as such even when the bumps are also wrong.
	s = f.spend()
	s.Secret[0] = 0xff
	s.VaultBump--
	_, err = f.exec(t, f.receiver, s)
	mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_HASH)

	f.ledger.now = f.lockTime
	r := f.refund()
	r.VaultBump--
	_, err = f.exec(t, f.sender, r)
	mustSwapErrCode(t, err, ERR_INVALID_VAULT_DERIVATION)

	// Derivation is checked before the lock time.
	f.ledger.now = 0
	r = f.refund()
	r.VaultDataBump--
	_, err = f.exec(t, f.sender, r)
	mustSwapErrCode(t, err, ERR_INVALID_VAULT_DERIVATION)

	if got := f.record(t).State; got != StateSent {
		t.Fatalf("state=%s after rejected releases", got)
	}
}

func TestEngine_PaymentPreconditions(t *testing.T) {
	cases := []struct {
		name string
		mut  func(f *swapFixture, p *Payment)
		want ErrorCode
	}{
		{"zero receiver", func(_ *swapFixture, p *Payment) { p.Receiver = Identity{} }, ERR_RECEIVER_SET_TO_DEFAULT},
		{"zero amount", func(_ *swapFixture, p *Payment) { p.Amount = 0 }, ERR_AMOUNT_ZERO},
		{"overflow", func(_ *swapFixture, p *Payment) { p.Amount = ^uint64(0) }, ERR_AMOUNT_OVERFLOW},
		{"unsigned", func(f *swapFixture, _ *Payment) { f.ledger.unsigned = true }, ERR_SENDER_ACCOUNT_NOT_SIGNER},
		{"read-only caller", func(f *swapFixture, _ *Payment) { f.ledger.readOnly[f.sender] = true }, ERR_SENDER_ACCOUNT_NOT_WRITABLE},
		{"read-only data vault", func(f *swapFixture, _ *Payment) { f.ledger.readOnly[f.accts.DataVault] = true }, ERR_VAULT_DATA_NOT_WRITABLE},
		{"read-only funds vault", func(f *swapFixture, _ *Payment) { f.ledger.readOnly[f.accts.FundsVault] = true }, ERR_VAULT_NOT_WRITABLE},
		{"owned funds vault", func(f *swapFixture, _ *Payment) { f.ledger.owners[f.accts.FundsVault] = f.ledger.programID }, ERR_VAULT_NOT_SYSTEM_OWNED},
		{"wrong bump", func(_ *swapFixture, p *Payment) { p.VaultBump-- }, ERR_INVALID_VAULT_DERIVATION},
		{"wrong data bump", func(_ *swapFixture, p *Payment) { p.VaultDataBump-- }, ERR_INVALID_VAULT_DERIVATION},
		{"swapped vaults", func(f *swapFixture, _ *Payment) {
			f.accts.DataVault, f.accts.FundsVault = f.accts.FundsVault, f.accts.DataVault
		}, ERR_INVALID_VAULT_DERIVATION},
		{"other lock time", func(_ *swapFixture, p *Payment) { p.LockTime++ }, ERR_INVALID_VAULT_DERIVATION},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSwapFixture(t)
			p := f.payment()
			tc.mut(f, p)
			_, err := f.exec(t, f.sender, p)
			mustSwapErrCode(t, err, tc.want)
			if _, ok := f.ledger.records[f.accts.DataVault]; ok {
				t.Fatalf("rejected payment wrote a record")
			}
		})
	}
}

func TestEngine_RecordPreconditions(t *testing.T) {
	t.Run("data vault not engine owned", func(t *testing.T) {
		f := newSwapFixture(t)
		_, err := f.exec(t, f.receiver, f.spend())
		mustSwapErrCode(t, err, ERR_INVALID_OWNER)
	})
	t.Run("no record", func(t *testing.T) {
		f := newSwapFixture(t)
		f.ledger.owners[f.accts.DataVault] = f.ledger.programID
		_, err := f.exec(t, f.receiver, f.spend())
		mustSwapErrCode(t, err, ERR_SWAP_ACCOUNT_NOT_FOUND)
	})
	t.Run("corrupt state byte", func(t *testing.T) {
		f := newSwapFixture(t)
		f.mustPay(t)
		f.ledger.records[f.accts.DataVault][40] = 0x7f
		_, err := f.exec(t, f.receiver, f.spend())
		mustSwapErrCode(t, err, ERR_UNKNOWN_PAYMENT_STATE)
	})
	t.Run("uninitialized record", func(t *testing.T) {
		f := newSwapFixture(t)
		f.ledger.owners[f.accts.DataVault] = f.ledger.programID
		r := PaymentRecord{
			Commitment: Commit(f.receiver, f.sender, SecretHash(f.secret), NativeAsset, f.amount),
			LockTime:   f.lockTime,
		}
		f.ledger.records[f.accts.DataVault] = r.Bytes()
		_, err := f.exec(t, f.receiver, f.spend())
		mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_STATE)
	})
}

func TestEngine_TokenPayment(t *testing.T) {
	f := newSwapFixture(t)
	f.asset = testIdentity(0xa0)
	tp := &TokenPayment{
		SecretHash:    SecretHash(f.secret),
		LockTime:      f.lockTime,
		Amount:        f.amount,
		Receiver:      f.receiver,
		AssetClass:    f.asset,
		FundingAmount: 100,
		VaultBump:     f.bump,
		VaultDataBump: f.dataBump,
	}
	e, err := f.exec(t, f.sender, tp)
	if err != nil {
		t.Fatalf("TokenPayment: %v", err)
	}
	if len(e.Movements) != 2 {
		t.Fatalf("movements=%+v", e.Movements)
	}
	if e.Movements[0].Asset != NativeAsset || e.Movements[0].Amount != 100 {
		t.Fatalf("funding movement=%+v", e.Movements[0])
	}
	if e.Movements[1].Asset != f.asset || e.Movements[1].Amount != f.amount {
		t.Fatalf("asset movement=%+v", e.Movements[1])
	}
	want := Commit(f.receiver, f.sender, SecretHash(f.secret), f.asset, f.amount)
	if f.record(t).Commitment != want {
		t.Fatalf("token commitment mismatch")
	}

	// Spending as native does not match the token commitment.
	s := f.spend()
	s.AssetClass = NativeAsset
	_, err = f.exec(t, f.receiver, s)
	mustSwapErrCode(t, err, ERR_INVALID_PAYMENT_HASH)

	e, err = f.exec(t, f.receiver, f.spend())
	if err != nil {
		t.Fatalf("token spend: %v", err)
	}
	if e.Movements[0].Asset != f.asset {
		t.Fatalf("token spend moved %s", e.Movements[0].Asset)
	}

	tp.AssetClass = NativeAsset
	_, err = newSwapFixture(t).exec(t, f.sender, tp)
	mustSwapErrCode(t, err, ERR_INVALID_TOKEN_PROGRAM)
}

func TestEngine_ExecuteBytes(t *testing.T) {
	f := newSwapFixture(t)
	f.ledger.caller = f.sender
	b := f.payment().Encode()
	if _, err := f.engine.ExecuteBytes(f.ledger, f.accts, b); err != nil {
		t.Fatalf("ExecuteBytes: %v", err)
	}
	_, err := f.engine.ExecuteBytes(f.ledger, f.accts, b[:len(b)-2])
	mustSwapErrCode(t, err, ERR_INVALID_INPUT_LENGTH)

	_, err = f.engine.Execute(f.ledger, f.accts, nil)
	mustSwapErrCode(t, err, ERR_INVALID_ATOMIC_SWAP_INSTRUCTION)

	if _, err := f.engine.Execute(nil, f.accts, f.payment()); err == nil {
		t.Fatalf("expected error for nil view")
	}
}

type failingView struct{ *testLedger }

func (failingView) ReadRecord(Identity) ([]byte, error) { return nil, errors.New("disk on fire") }

func TestEngine_ReadRecordFailure(t *testing.T) {
	f := newSwapFixture(t)
	f.mustPay(t)
	f.ledger.caller = f.receiver
	_, err := f.engine.Execute(failingView{f.ledger}, f.accts, f.spend())
	mustSwapErrCode(t, err, ERR_SWAP_ACCOUNT_NOT_FOUND)
}

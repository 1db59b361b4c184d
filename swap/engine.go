package swap

import "fmt"

// Engine is the swap state machine. It holds only its own identity and is
// safe for concurrent use; serializing instructions against the same data
// vault is the ledger's job.
type Engine struct {
	programID Identity
}

func NewEngine(programID Identity) *Engine {
	return &Engine{programID: programID}
}

func (e *Engine) ProgramID() Identity { return e.programID }

// ExecuteBytes decodes data and executes it.
func (e *Engine) ExecuteBytes(view LedgerView, accts Accounts, data []byte) (*Effect, error) {
	ix, err := ParseInstruction(data)
	if err != nil {
		return nil, err
	}
	return e.Execute(view, accts, ix)
}

// Execute validates ix against the ledger view and returns the effect the
// ledger must apply. On error nothing is to be applied.
func (e *Engine) Execute(view LedgerView, accts Accounts, ix Instruction) (*Effect, error) {
	if view == nil {
		return nil, fmt.Errorf("swap: nil ledger view")
	}
	if ix == nil {
		return nil, swaperr(ERR_INVALID_ATOMIC_SWAP_INSTRUCTION, "nil instruction")
	}
	x := &execution{engine: e, view: view, accts: accts, caller: view.Caller()}
	if err := ix.Accept(x); err != nil {
		return nil, err
	}
	return x.effect, nil
}

type execution struct {
	engine *Engine
	view   LedgerView
	accts  Accounts
	caller Identity
	effect *Effect
}

func (x *execution) VisitPayment(ix *Payment) error {
	if ix.Receiver.IsZero() {
		return swaperr(ERR_RECEIVER_SET_TO_DEFAULT, "receiver is the zero identity")
	}
	if ix.Amount == 0 {
		return swaperr(ERR_AMOUNT_ZERO, "amount must be > 0")
	}
	total, ok := addU64(ix.Amount, ix.FundingAmount)
	if !ok {
		return swaperr(ERR_AMOUNT_OVERFLOW, "amount + funding overflows u64")
	}
	if err := x.validateAccounts(); err != nil {
		return err
	}
	if err := x.verifyVaults(ix.LockTime, ix.SecretHash, ix.VaultBump, ix.VaultDataBump); err != nil {
		return err
	}

	x.effect = x.newPaymentEffect(TagPayment, ix.Receiver, ix.SecretHash, NativeAsset, ix.Amount, ix.LockTime, ix.FundingAmount)
	x.effect.Movements = []Movement{
		{From: x.caller, To: x.accts.FundsVault, Asset: NativeAsset, Amount: total},
	}
	return nil
}

func (x *execution) VisitTokenPayment(ix *TokenPayment) error {
	if ix.Receiver.IsZero() {
		return swaperr(ERR_RECEIVER_SET_TO_DEFAULT, "receiver is the zero identity")
	}
	if ix.Amount == 0 {
		return swaperr(ERR_AMOUNT_ZERO, "amount must be > 0")
	}
	if ix.AssetClass.IsZero() {
		return swaperr(ERR_INVALID_TOKEN_PROGRAM, "token payment requires a nonzero asset class")
	}
	if err := x.validateAccounts(); err != nil {
		return err
	}
	if err := x.verifyVaults(ix.LockTime, ix.SecretHash, ix.VaultBump, ix.VaultDataBump); err != nil {
		return err
	}

	x.effect = x.newPaymentEffect(TagTokenPayment, ix.Receiver, ix.SecretHash, ix.AssetClass, ix.Amount, ix.LockTime, ix.FundingAmount)
	x.effect.Movements = make([]Movement, 0, 2)
	if ix.FundingAmount > 0 {
		x.effect.Movements = append(x.effect.Movements, Movement{
			From: x.caller, To: x.accts.FundsVault, Asset: NativeAsset, Amount: ix.FundingAmount,
		})
	}
	x.effect.Movements = append(x.effect.Movements, Movement{
		From: x.caller, To: x.accts.FundsVault, Asset: ix.AssetClass, Amount: ix.Amount,
	})
	return nil
}

func (x *execution) newPaymentEffect(tag uint8, receiver Identity, secretHash [32]byte, asset Identity, amount, lockTime, funding uint64) *Effect {
	return &Effect{
		Tag:        tag,
		Caller:     x.caller,
		DataVault:  x.accts.DataVault,
		FundsVault: x.accts.FundsVault,
		Allocation: &Allocation{
			Account: x.accts.DataVault,
			Payer:   x.caller,
			Space:   PaymentRecordSize,
			Funding: funding,
		},
		Record: PaymentRecord{
			Commitment: Commit(receiver, x.caller, secretHash, asset, amount),
			LockTime:   lockTime,
			State:      StateSent,
		},
	}
}

func (x *execution) VisitReceiverSpend(ix *ReceiverSpend) error {
	if err := x.validateAccounts(); err != nil {
		return err
	}
	if !x.view.VerifyRole(x.accts.DataVault, AccountEngineOwned) {
		return swaperr(ERR_INVALID_OWNER, "data vault is not owned by the swap engine")
	}
	secretHash := SecretHash(ix.Secret)
	expected := Commit(x.caller, ix.Sender, secretHash, ix.AssetClass, ix.Amount)
	rec, err := x.loadSentRecord(expected)
	if err != nil {
		return err
	}
	// Vaults derive from the secret hash, so they are checked only after
	// the commitment has accepted the secret.
	if err := x.verifyVaults(ix.LockTime, secretHash, ix.VaultBump, ix.VaultDataBump); err != nil {
		return err
	}

	rec.State = StateReceiverSpent
	secret := ix.Secret
	x.effect = x.releaseEffect(TagReceiverSpend, *rec, ix.AssetClass, ix.Amount)
	x.effect.Secret = &secret
	return nil
}

func (x *execution) VisitSenderRefund(ix *SenderRefund) error {
	if err := x.validateAccounts(); err != nil {
		return err
	}
	if !x.view.VerifyRole(x.accts.DataVault, AccountEngineOwned) {
		return swaperr(ERR_INVALID_OWNER, "data vault is not owned by the swap engine")
	}
	expected := Commit(ix.Receiver, x.caller, ix.SecretHash, ix.AssetClass, ix.Amount)
	rec, err := x.loadSentRecord(expected)
	if err != nil {
		return err
	}
	if err := x.verifyVaults(ix.LockTime, ix.SecretHash, ix.VaultBump, ix.VaultDataBump); err != nil {
		return err
	}
	if now := x.view.CurrentTime(); now < rec.LockTime {
		return swaperr(ERR_WAIT_FOR_LOCK_TIME, fmt.Sprintf("refund locked until %d (now %d)", rec.LockTime, now))
	}

	rec.State = StateSenderRefunded
	x.effect = x.releaseEffect(TagSenderRefund, *rec, ix.AssetClass, ix.Amount)
	return nil
}

func (x *execution) releaseEffect(tag uint8, rec PaymentRecord, asset Identity, amount uint64) *Effect {
	return &Effect{
		Tag:        tag,
		Caller:     x.caller,
		DataVault:  x.accts.DataVault,
		FundsVault: x.accts.FundsVault,
		Record:     rec,
		Movements: []Movement{
			{From: x.accts.FundsVault, To: x.caller, Asset: asset, Amount: amount},
		},
	}
}

// loadSentRecord reads the data vault and requires that it commits to
// expected and is still in the Sent state. The commitment is checked first.
func (x *execution) loadSentRecord(expected [32]byte) (*PaymentRecord, error) {
	raw, err := x.view.ReadRecord(x.accts.DataVault)
	if err != nil {
		return nil, swaperr(ERR_SWAP_ACCOUNT_NOT_FOUND, fmt.Sprintf("data vault %s: %v", x.accts.DataVault, err))
	}
	rec, err := ParsePaymentRecord(raw)
	if err != nil {
		return nil, err
	}
	if rec.Commitment != expected {
		return nil, swaperr(ERR_INVALID_PAYMENT_HASH, "payment commitment mismatch")
	}
	if rec.State != StateSent {
		return nil, swaperr(ERR_INVALID_PAYMENT_STATE, fmt.Sprintf("payment state %s, want %s", rec.State, StateSent))
	}
	return rec, nil
}

func (x *execution) validateAccounts() error {
	v := x.view
	if !v.VerifyRole(x.caller, AccountSigner) {
		return swaperr(ERR_SENDER_ACCOUNT_NOT_SIGNER, "caller must sign")
	}
	if !v.VerifyRole(x.caller, AccountWritable) {
		return swaperr(ERR_SENDER_ACCOUNT_NOT_WRITABLE, "caller must be writable")
	}
	if !v.VerifyRole(x.accts.DataVault, AccountWritable) {
		return swaperr(ERR_VAULT_DATA_NOT_WRITABLE, "data vault must be writable")
	}
	if !v.VerifyRole(x.accts.FundsVault, AccountWritable) {
		return swaperr(ERR_VAULT_NOT_WRITABLE, "funds vault must be writable")
	}
	if !v.VerifyRole(x.accts.FundsVault, AccountSystemOwned) {
		return swaperr(ERR_VAULT_NOT_SYSTEM_OWNED, "funds vault must be system owned")
	}
	return nil
}

func (x *execution) verifyVaults(lockTime uint64, secretHash [32]byte, bump, dataBump uint8) error {
	pid := x.engine.programID
	if !VerifyVault(x.accts.FundsVault, pid, RoleFunds, lockTime, secretHash, bump) {
		return swaperr(ERR_INVALID_VAULT_DERIVATION, fmt.Sprintf("funds vault %s does not match bump %d", x.accts.FundsVault, bump))
	}
	if !VerifyVault(x.accts.DataVault, pid, RoleData, lockTime, secretHash, dataBump) {
		return swaperr(ERR_INVALID_VAULT_DERIVATION, fmt.Sprintf("data vault %s does not match bump %d", x.accts.DataVault, dataBump))
	}
	return nil
}

func addU64(a, b uint64) (uint64, bool) {
	if b > ^uint64(0)-a {
		return 0, false
	}
	return a + b, true
}

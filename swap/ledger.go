package swap

import "errors"

// AccountRole is a set of requirements the engine places on an account.
type AccountRole uint8

const (
	AccountSigner AccountRole = 1 << iota
	AccountWritable
	// AccountEngineOwned: the account's owner is the executing engine.
	AccountEngineOwned
	// AccountSystemOwned: the account is key-less system custody.
	AccountSystemOwned
)

var (
	// ErrNoAccountData is returned by LedgerView.ReadRecord for an account
	// that does not exist or holds no data.
	ErrNoAccountData = errors.New("account holds no data")

	// Ledger-side failures while applying an Effect. They are not engine
	// codes: the engine never sees balances.
	ErrAccountInUse      = errors.New("account already in use")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance overflow")
)

// LedgerView is the read side of the ledger for one instruction. The engine
// receives everything it knows about the world through it.
type LedgerView interface {
	// Caller is the identity that submitted the instruction.
	Caller() Identity
	CurrentTime() uint64
	VerifyRole(account Identity, required AccountRole) bool
	ReadRecord(account Identity) ([]byte, error)
}

// Accounts names the vaults an instruction operates on, as supplied by the
// caller. Both are re-derived and verified before use.
type Accounts struct {
	DataVault  Identity
	FundsVault Identity
}

// Allocation asks the ledger to create Account with Space bytes of data,
// owned by the engine and funded with Funding native value from Payer.
type Allocation struct {
	Account Identity
	Payer   Identity
	Space   int
	Funding uint64
}

// Movement asks the ledger to move Amount of Asset from From to To.
type Movement struct {
	From   Identity
	To     Identity
	Asset  Identity
	Amount uint64
}

// Effect is the outcome of a validated instruction. The ledger must apply
// the allocation, the record write and every movement as one atomic unit.
type Effect struct {
	Tag        uint8
	Caller     Identity
	DataVault  Identity
	FundsVault Identity
	Allocation *Allocation
	Record     PaymentRecord
	Movements  []Movement
	// Secret is set by ReceiverSpend; it is part of the public trace.
	Secret *[32]byte
}

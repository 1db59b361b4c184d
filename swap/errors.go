package swap

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable numeric error surface reported to the ledger.
type ErrorCode uint32

const (
	ERR_INVALID_INPUT_LENGTH            ErrorCode = 601
	ERR_INVALID_SECRET_HASH             ErrorCode = 602
	ERR_INVALID_LOCK_TIME               ErrorCode = 603
	ERR_INVALID_AMOUNT                  ErrorCode = 604
	ERR_INVALID_RECEIVER_PUBKEY         ErrorCode = 605
	ERR_INVALID_TOKEN_PROGRAM           ErrorCode = 606
	ERR_INVALID_SECRET                  ErrorCode = 607
	ERR_INVALID_SENDER_PUBKEY           ErrorCode = 608
	ERR_INVALID_ATOMIC_SWAP_INSTRUCTION ErrorCode = 609
	ERR_RECEIVER_SET_TO_DEFAULT         ErrorCode = 610
	ERR_AMOUNT_ZERO                     ErrorCode = 611
	ERR_SWAP_ACCOUNT_NOT_FOUND          ErrorCode = 612
	ERR_INVALID_PAYMENT_HASH            ErrorCode = 613
	ERR_INVALID_PAYMENT_STATE           ErrorCode = 614
	ERR_NOT_SUPPORTED                   ErrorCode = 615
	ERR_SENDER_ACCOUNT_NOT_SIGNER       ErrorCode = 616
	ERR_SENDER_ACCOUNT_NOT_WRITABLE     ErrorCode = 617
	ERR_VAULT_DATA_NOT_WRITABLE         ErrorCode = 618
	ERR_VAULT_NOT_WRITABLE              ErrorCode = 619
	ERR_VAULT_NOT_SYSTEM_OWNED          ErrorCode = 620
	ERR_INVALID_OWNER                   ErrorCode = 621
	ERR_WAIT_FOR_LOCK_TIME              ErrorCode = 622
	ERR_INVALID_VAULT_DERIVATION        ErrorCode = 623
	ERR_ACCOUNT_DATA_TOO_SMALL          ErrorCode = 624
	ERR_INVALID_ACCOUNT_DATA            ErrorCode = 625
	ERR_UNKNOWN_PAYMENT_STATE           ErrorCode = 626
	ERR_AMOUNT_OVERFLOW                 ErrorCode = 627
)

var codeNames = map[ErrorCode]string{
	ERR_INVALID_INPUT_LENGTH:            "INVALID_INPUT_LENGTH",
	ERR_INVALID_SECRET_HASH:             "INVALID_SECRET_HASH",
	ERR_INVALID_LOCK_TIME:               "INVALID_LOCK_TIME",
	ERR_INVALID_AMOUNT:                  "INVALID_AMOUNT",
	ERR_INVALID_RECEIVER_PUBKEY:         "INVALID_RECEIVER_PUBKEY",
	ERR_INVALID_TOKEN_PROGRAM:           "INVALID_TOKEN_PROGRAM",
	ERR_INVALID_SECRET:                  "INVALID_SECRET",
	ERR_INVALID_SENDER_PUBKEY:           "INVALID_SENDER_PUBKEY",
	ERR_INVALID_ATOMIC_SWAP_INSTRUCTION: "INVALID_ATOMIC_SWAP_INSTRUCTION",
	ERR_RECEIVER_SET_TO_DEFAULT:         "RECEIVER_SET_TO_DEFAULT",
	ERR_AMOUNT_ZERO:                     "AMOUNT_ZERO",
	ERR_SWAP_ACCOUNT_NOT_FOUND:          "SWAP_ACCOUNT_NOT_FOUND",
	ERR_INVALID_PAYMENT_HASH:            "INVALID_PAYMENT_HASH",
	ERR_INVALID_PAYMENT_STATE:           "INVALID_PAYMENT_STATE",
	ERR_NOT_SUPPORTED:                   "NOT_SUPPORTED",
	ERR_SENDER_ACCOUNT_NOT_SIGNER:       "SENDER_ACCOUNT_NOT_SIGNER",
	ERR_SENDER_ACCOUNT_NOT_WRITABLE:     "SENDER_ACCOUNT_NOT_WRITABLE",
	ERR_VAULT_DATA_NOT_WRITABLE:         "VAULT_DATA_NOT_WRITABLE",
	ERR_VAULT_NOT_WRITABLE:              "VAULT_NOT_WRITABLE",
	ERR_VAULT_NOT_SYSTEM_OWNED:          "VAULT_NOT_SYSTEM_OWNED",
	ERR_INVALID_OWNER:                   "INVALID_OWNER",
	ERR_WAIT_FOR_LOCK_TIME:              "WAIT_FOR_LOCK_TIME",
	ERR_INVALID_VAULT_DERIVATION:        "INVALID_VAULT_DERIVATION",
	ERR_ACCOUNT_DATA_TOO_SMALL:          "ACCOUNT_DATA_TOO_SMALL",
	ERR_INVALID_ACCOUNT_DATA:            "INVALID_ACCOUNT_DATA",
	ERR_UNKNOWN_PAYMENT_STATE:           "UNKNOWN_PAYMENT_STATE",
	ERR_AMOUNT_OVERFLOW:                 "AMOUNT_OVERFLOW",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ERROR_%d", uint32(c))
}

// ErrorClass groups codes by how the caller is expected to react.
type ErrorClass uint8

const (
	ClassUnknown ErrorClass = iota
	ClassDecoding
	ClassPrecondition
	ClassCommitment
	ClassLifecycle
	ClassTiming
	ClassStorage
)

func (c ErrorClass) String() string {
	switch c {
	case ClassDecoding:
		return "decoding"
	case ClassPrecondition:
		return "precondition"
	case ClassCommitment:
		return "commitment"
	case ClassLifecycle:
		return "lifecycle"
	case ClassTiming:
		return "timing"
	case ClassStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Class reports the taxonomy group of c.
func (c ErrorCode) Class() ErrorClass {
	switch c {
	case ERR_INVALID_INPUT_LENGTH,
		ERR_INVALID_SECRET_HASH,
		ERR_INVALID_LOCK_TIME,
		ERR_INVALID_AMOUNT,
		ERR_INVALID_RECEIVER_PUBKEY,
		ERR_INVALID_SECRET,
		ERR_INVALID_SENDER_PUBKEY,
		ERR_INVALID_ATOMIC_SWAP_INSTRUCTION,
		ERR_INVALID_ACCOUNT_DATA,
		ERR_UNKNOWN_PAYMENT_STATE:
		return ClassDecoding
	case ERR_INVALID_TOKEN_PROGRAM,
		ERR_RECEIVER_SET_TO_DEFAULT,
		ERR_AMOUNT_ZERO,
		ERR_AMOUNT_OVERFLOW,
		ERR_SWAP_ACCOUNT_NOT_FOUND,
		ERR_NOT_SUPPORTED,
		ERR_SENDER_ACCOUNT_NOT_SIGNER,
		ERR_SENDER_ACCOUNT_NOT_WRITABLE,
		ERR_VAULT_DATA_NOT_WRITABLE,
		ERR_VAULT_NOT_WRITABLE,
		ERR_VAULT_NOT_SYSTEM_OWNED,
		ERR_INVALID_OWNER,
		ERR_INVALID_VAULT_DERIVATION:
		return ClassPrecondition
	case ERR_INVALID_PAYMENT_HASH:
		return ClassCommitment
	case ERR_INVALID_PAYMENT_STATE:
		return ClassLifecycle
	case ERR_WAIT_FOR_LOCK_TIME:
		return ClassTiming
	case ERR_ACCOUNT_DATA_TOO_SMALL:
		return ClassStorage
	default:
		return ClassUnknown
	}
}

type SwapError struct {
	Code ErrorCode
	Msg  string
}

func (e *SwapError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s (%d)", e.Code, uint32(e.Code))
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, uint32(e.Code), e.Msg)
}

func swaperr(code ErrorCode, msg string) error {
	return &SwapError{Code: code, Msg: msg}
}

// CodeOf extracts the numeric code from err, looking through wrapping.
func CodeOf(err error) (ErrorCode, bool) {
	var se *SwapError
	if errors.As(err, &se) && se != nil {
		return se.Code, true
	}
	return 0, false
}

// IsRetriable reports whether err may succeed if submitted again later
// without changes. Only the lock-time guard qualifies.
func IsRetriable(err error) bool {
	code, ok := CodeOf(err)
	return ok && code.Class() == ClassTiming
}

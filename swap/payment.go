package swap

import (
	"encoding/binary"
	"fmt"
)

// PaymentRecordSize is the fixed size of a persisted PaymentRecord:
// commitment[32] | lock_time u64le | state u8.
const PaymentRecordSize = 41

type PaymentState uint8

const (
	StateUninitialized  PaymentState = 0
	StateSent           PaymentState = 1
	StateReceiverSpent  PaymentState = 2
	StateSenderRefunded PaymentState = 3
)

func (s PaymentState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateSent:
		return "Sent"
	case StateReceiverSpent:
		return "ReceiverSpent"
	case StateSenderRefunded:
		return "SenderRefunded"
	default:
		return fmt.Sprintf("PaymentState(%d)", uint8(s))
	}
}

// Terminal reports whether no further transition is possible from s.
func (s PaymentState) Terminal() bool {
	return s == StateReceiverSpent || s == StateSenderRefunded
}

// PaymentRecord is the swap state stored in the data vault.
type PaymentRecord struct {
	Commitment [32]byte
	LockTime   uint64
	State      PaymentState
}

// ParsePaymentRecord decodes exactly PaymentRecordSize bytes. State bytes
// outside the four known values are rejected, never defaulted.
func ParsePaymentRecord(b []byte) (*PaymentRecord, error) {
	if len(b) != PaymentRecordSize {
		return nil, swaperr(ERR_INVALID_ACCOUNT_DATA, fmt.Sprintf("payment record length %d, want %d", len(b), PaymentRecordSize))
	}
	var r PaymentRecord
	copy(r.Commitment[:], b[0:32])
	r.LockTime = binary.LittleEndian.Uint64(b[32:40])
	switch st := PaymentState(b[40]); st {
	case StateUninitialized, StateSent, StateReceiverSpent, StateSenderRefunded:
		r.State = st
	default:
		return nil, swaperr(ERR_UNKNOWN_PAYMENT_STATE, fmt.Sprintf("payment state byte %d", b[40]))
	}
	return &r, nil
}

func (r PaymentRecord) Bytes() []byte {
	out := make([]byte, 0, PaymentRecordSize)
	out = append(out, r.Commitment[:]...)
	out = appendU64le(out, r.LockTime)
	out = append(out, byte(r.State))
	return out
}

// StorePaymentRecord writes r into the head of dst, the buffer the ledger
// allocated for the data vault.
func StorePaymentRecord(dst []byte, r PaymentRecord) error {
	if len(dst) < PaymentRecordSize {
		return swaperr(ERR_ACCOUNT_DATA_TOO_SMALL, fmt.Sprintf("account data %d bytes, record needs %d", len(dst), PaymentRecordSize))
	}
	copy(dst, r.Bytes())
	return nil
}

package swap

import "fmt"

// Instruction tags (byte 0 of every encoded instruction).
const (
	TagPayment       uint8 = 0
	TagTokenPayment  uint8 = 1
	TagReceiverSpend uint8 = 2
	TagSenderRefund  uint8 = 3
)

// Exact encoded lengths, tag byte included.
const (
	PaymentLen       = 1 + 32 + 8 + 8 + 32 + 8 + 1 + 1
	TokenPaymentLen  = 1 + 32 + 8 + 8 + 32 + 32 + 8 + 1 + 1
	ReceiverSpendLen = 1 + 32 + 8 + 8 + 32 + 32 + 1 + 1
	SenderRefundLen  = 1 + 32 + 8 + 8 + 32 + 32 + 1 + 1
)

// Instruction is the closed set of swap operations. The unexported method
// keeps the set closed to this package.
type Instruction interface {
	Tag() uint8
	Encode() []byte
	Accept(v Visitor) error
	isInstruction()
}

// Visitor receives exactly one call per Accept. Adding an instruction
// variant adds a method here, which breaks every implementation at compile
// time until the new variant is handled.
type Visitor interface {
	VisitPayment(ix *Payment) error
	VisitTokenPayment(ix *TokenPayment) error
	VisitReceiverSpend(ix *ReceiverSpend) error
	VisitSenderRefund(ix *SenderRefund) error
}

// Payment escrows native value.
type Payment struct {
	SecretHash    [32]byte
	LockTime      uint64
	Amount        uint64
	Receiver      Identity
	FundingAmount uint64
	VaultBump     uint8
	VaultDataBump uint8
}

// TokenPayment escrows Amount of AssetClass.
type TokenPayment struct {
	SecretHash    [32]byte
	LockTime      uint64
	Amount        uint64
	Receiver      Identity
	AssetClass    Identity
	FundingAmount uint64
	VaultBump     uint8
	VaultDataBump uint8
}

// ReceiverSpend releases the escrow to the caller by disclosing Secret.
type ReceiverSpend struct {
	Secret        [32]byte
	LockTime      uint64
	Amount        uint64
	Sender        Identity
	AssetClass    Identity
	VaultBump     uint8
	VaultDataBump uint8
}

// SenderRefund returns the escrow to the caller after LockTime.
type SenderRefund struct {
	SecretHash    [32]byte
	LockTime      uint64
	Amount        uint64
	Receiver      Identity
	AssetClass    Identity
	VaultBump     uint8
	VaultDataBump uint8
}

func (*Payment) isInstruction()       {}
func (*TokenPayment) isInstruction()  {}
func (*ReceiverSpend) isInstruction() {}
func (*SenderRefund) isInstruction()  {}

func (*Payment) Tag() uint8       { return TagPayment }
func (*TokenPayment) Tag() uint8  { return TagTokenPayment }
func (*ReceiverSpend) Tag() uint8 { return TagReceiverSpend }
func (*SenderRefund) Tag() uint8  { return TagSenderRefund }

func (ix *Payment) Accept(v Visitor) error       { return v.VisitPayment(ix) }
func (ix *TokenPayment) Accept(v Visitor) error  { return v.VisitTokenPayment(ix) }
func (ix *ReceiverSpend) Accept(v Visitor) error { return v.VisitReceiverSpend(ix) }
func (ix *SenderRefund) Accept(v Visitor) error  { return v.VisitSenderRefund(ix) }

func (ix *Payment) Encode() []byte {
	b := make([]byte, 0, PaymentLen)
	b = append(b, TagPayment)
	b = append(b, ix.SecretHash[:]...)
	b = appendU64le(b, ix.LockTime)
	b = appendU64le(b, ix.Amount)
	b = append(b, ix.Receiver[:]...)
	b = appendU64le(b, ix.FundingAmount)
	b = append(b, ix.VaultBump, ix.VaultDataBump)
	return b
}

func (ix *TokenPayment) Encode() []byte {
	b := make([]byte, 0, TokenPaymentLen)
	b = append(b, TagTokenPayment)
	b = append(b, ix.SecretHash[:]...)
	b = appendU64le(b, ix.LockTime)
	b = appendU64le(b, ix.Amount)
	b = append(b, ix.Receiver[:]...)
	b = append(b, ix.AssetClass[:]...)
	b = appendU64le(b, ix.FundingAmount)
	b = append(b, ix.VaultBump, ix.VaultDataBump)
	return b
}

func (ix *ReceiverSpend) Encode() []byte {
	b := make([]byte, 0, ReceiverSpendLen)
	b = append(b, TagReceiverSpend)
	b = append(b, ix.Secret[:]...)
	b = appendU64le(b, ix.LockTime)
	b = appendU64le(b, ix.Amount)
	b = append(b, ix.Sender[:]...)
	b = append(b, ix.AssetClass[:]...)
	b = append(b, ix.VaultBump, ix.VaultDataBump)
	return b
}

func (ix *SenderRefund) Encode() []byte {
	b := make([]byte, 0, SenderRefundLen)
	b = append(b, TagSenderRefund)
	b = append(b, ix.SecretHash[:]...)
	b = appendU64le(b, ix.LockTime)
	b = appendU64le(b, ix.Amount)
	b = append(b, ix.Receiver[:]...)
	b = append(b, ix.AssetClass[:]...)
	b = append(b, ix.VaultBump, ix.VaultDataBump)
	return b
}

// TagName returns the operation name of tag for logs and tooling.
func TagName(tag uint8) string {
	switch tag {
	case TagPayment:
		return "Payment"
	case TagTokenPayment:
		return "TokenPayment"
	case TagReceiverSpend:
		return "ReceiverSpend"
	case TagSenderRefund:
		return "SenderRefund"
	default:
		return fmt.Sprintf("Unknown(%d)", tag)
	}
}

func expectedLen(tag uint8) (int, bool) {
	switch tag {
	case TagPayment:
		return PaymentLen, true
	case TagTokenPayment:
		return TokenPaymentLen, true
	case TagReceiverSpend:
		return ReceiverSpendLen, true
	case TagSenderRefund:
		return SenderRefundLen, true
	default:
		return 0, false
	}
}

// ParseInstruction decodes an instruction whose tag is its first byte.
func ParseInstruction(input []byte) (Instruction, error) {
	if len(input) == 0 {
		return nil, swaperr(ERR_INVALID_INPUT_LENGTH, "empty instruction")
	}
	return DecodeInstruction(input[0], input)
}

// DecodeInstruction decodes input as the variant named by tag. input carries
// the tag at offset 0 and must have the variant's exact length; the length
// is checked before any field is read.
func DecodeInstruction(tag uint8, input []byte) (Instruction, error) {
	want, ok := expectedLen(tag)
	if !ok {
		return nil, swaperr(ERR_INVALID_ATOMIC_SWAP_INSTRUCTION, fmt.Sprintf("unknown instruction tag %d", tag))
	}
	if len(input) != want {
		return nil, swaperr(ERR_INVALID_INPUT_LENGTH, fmt.Sprintf("%s: length %d, want %d", TagName(tag), len(input), want))
	}
	if input[0] != tag {
		return nil, swaperr(ERR_INVALID_ATOMIC_SWAP_INSTRUCTION, fmt.Sprintf("tag byte %d does not match %s", input[0], TagName(tag)))
	}

	off := 1
	switch tag {
	case TagPayment:
		return decodePayment(input, &off)
	case TagTokenPayment:
		return decodeTokenPayment(input, &off)
	case TagReceiverSpend:
		return decodeReceiverSpend(input, &off)
	default:
		return decodeSenderRefund(input, &off)
	}
}

func decodePayment(b []byte, off *int) (*Payment, error) {
	var ix Payment
	var err error
	if ix.SecretHash, err = read32(b, off, ERR_INVALID_SECRET_HASH); err != nil {
		return nil, err
	}
	if ix.LockTime, err = readU64le(b, off, ERR_INVALID_LOCK_TIME); err != nil {
		return nil, err
	}
	if ix.Amount, err = readU64le(b, off, ERR_INVALID_AMOUNT); err != nil {
		return nil, err
	}
	if ix.Receiver, err = readIdentity(b, off, ERR_INVALID_RECEIVER_PUBKEY); err != nil {
		return nil, err
	}
	if ix.FundingAmount, err = readU64le(b, off, ERR_INVALID_AMOUNT); err != nil {
		return nil, err
	}
	if ix.VaultBump, err = readU8(b, off, ERR_INVALID_INPUT_LENGTH); err != nil {
		return nil, err
	}
	if ix.VaultDataBump, err = readU8(b, off, ERR_INVALID_INPUT_LENGTH); err != nil {
		return nil, err
	}
	return &ix, nil
}

func decodeTokenPayment(b []byte, off *int) (*TokenPayment, error) {
	var ix TokenPayment
	var err error
	if ix.SecretHash, err = read32(b, off, ERR_INVALID_SECRET_HASH); err != nil {
		return nil, err
	}
	if ix.LockTime, err = readU64le(b, off, ERR_INVALID_LOCK_TIME); err != nil {
		return nil, err
	}
	if ix.Amount, err = readU64le(b, off, ERR_INVALID_AMOUNT); err != nil {
		return nil, err
	}
	if ix.Receiver, err = readIdentity(b, off, ERR_INVALID_RECEIVER_PUBKEY); err != nil {
		return nil, err
	}
	if ix.AssetClass, err = readIdentity(b, off, ERR_INVALID_TOKEN_PROGRAM); err != nil {
		return nil, err
	}
	if ix.FundingAmount, err = readU64le(b, off, ERR_INVALID_AMOUNT); err != nil {
		return nil, err
	}
	if ix.VaultBump, err = readU8(b, off, ERR_INVALID_INPUT_LENGTH); err != nil {
		return nil, err
	}
	if ix.VaultDataBump, err = readU8(b, off, ERR_INVALID_INPUT_LENGTH); err != nil {
		return nil, err
	}
	return &ix, nil
}

func decodeReceiverSpend(b []byte, off *int) (*ReceiverSpend, error) {
	var ix ReceiverSpend
	var err error
	if ix.Secret, err = read32(b, off, ERR_INVALID_SECRET); err != nil {
		return nil, err
	}
	if ix.LockTime, err = readU64le(b, off, ERR_INVALID_LOCK_TIME); err != nil {
		return nil, err
	}
	if ix.Amount, err = readU64le(b, off, ERR_INVALID_AMOUNT); err != nil {
		return nil, err
	}
	if ix.Sender, err = readIdentity(b, off, ERR_INVALID_SENDER_PUBKEY); err != nil {
		return nil, err
	}
	if ix.AssetClass, err = readIdentity(b, off, ERR_INVALID_TOKEN_PROGRAM); err != nil {
		return nil, err
	}
	if ix.VaultBump, err = readU8(b, off, ERR_INVALID_INPUT_LENGTH); err != nil {
		return nil, err
	}
	if ix.VaultDataBump, err = readU8(b, off, ERR_INVALID_INPUT_LENGTH); err != nil {
		return nil, err
	}
	return &ix, nil
}

func decodeSenderRefund(b []byte, off *int) (*SenderRefund, error) {
	var ix SenderRefund
	var err error
	if ix.SecretHash, err = read32(b, off, ERR_INVALID_SECRET_HASH); err != nil {
		return nil, err
	}
	if ix.LockTime, err = readU64le(b, off, ERR_INVALID_LOCK_TIME); err != nil {
		return nil, err
	}
	if ix.Amount, err = readU64le(b, off, ERR_INVALID_AMOUNT); err != nil {
		return nil, err
	}
	if ix.Receiver, err = readIdentity(b, off, ERR_INVALID_RECEIVER_PUBKEY); err != nil {
		return nil, err
	}
	if ix.AssetClass, err = readIdentity(b, off, ERR_INVALID_TOKEN_PROGRAM); err != nil {
		return nil, err
	}
	if ix.VaultBump, err = readU8(b, off, ERR_INVALID_INPUT_LENGTH); err != nil {
		return nil, err
	}
	if ix.VaultDataBump, err = readU8(b, off, ERR_INVALID_INPUT_LENGTH); err != nil {
		return nil, err
	}
	return &ix, nil
}

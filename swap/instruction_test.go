package swap

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"
)

func sampleInstructions() []Instruction {
	sh := SecretHash([32]byte{0x11})
	return []Instruction{
		&Payment{
			SecretHash:    sh,
			LockTime:      1_700_000_000,
			Amount:        10000,
			Receiver:      testIdentity(0x20),
			FundingAmount: 890880,
			VaultBump:     255,
			VaultDataBump: 254,
		},
		&TokenPayment{
			SecretHash:    sh,
			LockTime:      42,
			Amount:        1,
			Receiver:      testIdentity(0x20),
			AssetClass:    testIdentity(0x90),
			FundingAmount: 7,
			VaultBump:     1,
			VaultDataBump: 2,
		},
		&ReceiverSpend{
			Secret:        [32]byte{0x11},
			LockTime:      42,
			Amount:        ^uint64(0),
			Sender:        testIdentity(0x30),
			AssetClass:    NativeAsset,
			VaultBump:     3,
			VaultDataBump: 4,
		},
		&SenderRefund{
			SecretHash:    sh,
			LockTime:      0,
			Amount:        5,
			Receiver:      testIdentity(0x20),
			AssetClass:    testIdentity(0x90),
			VaultBump:     5,
			VaultDataBump: 6,
		},
	}
}

func TestInstruction_RoundTrip(t *testing.T) {
	for _, ix := range sampleInstructions() {
		b := ix.Encode()
		if want, _ := expectedLen(ix.Tag()); len(b) != want {
			t.Fatalf("%s: encoded %d bytes, want %d", TagName(ix.Tag()), len(b), want)
		}
		if b[0] != ix.Tag() {
			t.Fatalf("%s: tag byte %d", TagName(ix.Tag()), b[0])
		}
		got, err := ParseInstruction(b)
		if err != nil {
			t.Fatalf("%s: ParseInstruction: %v", TagName(ix.Tag()), err)
		}
		if !reflect.DeepEqual(got, ix) {
			t.Fatalf("%s: round trip mismatch\n got=%+v\nwant=%+v", TagName(ix.Tag()), got, ix)
		}
	}
}

func TestInstruction_Lengths(t *testing.T) {
	if PaymentLen != 91 || TokenPaymentLen != 123 || ReceiverSpendLen != 115 || SenderRefundLen != 115 {
		t.Fatalf("lengths: %d %d %d %d", PaymentLen, TokenPaymentLen, ReceiverSpendLen, SenderRefundLen)
	}
}

func TestPayment_FieldOffsets(t *testing.T) {
	ix := sampleInstructions()[0].(*Payment)
	b := ix.Encode()
	if !bytes.Equal(b[1:33], ix.SecretHash[:]) {
		t.Fatalf("secret_hash misplaced")
	}
	if binary.LittleEndian.Uint64(b[33:41]) != ix.LockTime {
		t.Fatalf("lock_time misplaced")
	}
	if binary.LittleEndian.Uint64(b[41:49]) != ix.Amount {
		t.Fatalf("amount misplaced")
	}
	if !bytes.Equal(b[49:81], ix.Receiver[:]) {
		t.Fatalf("receiver misplaced")
	}
	if binary.LittleEndian.Uint64(b[81:89]) != ix.FundingAmount {
		t.Fatalf("funding_amount misplaced")
	}
	if b[89] != ix.VaultBump || b[90] != ix.VaultDataBump {
		t.Fatalf("bumps misplaced: %d %d", b[89], b[90])
	}
}

func TestTokenPayment_AssetBeforeFunding(t *testing.T) {
	ix := sampleInstructions()[1].(*TokenPayment)
	b := ix.Encode()
	if !bytes.Equal(b[81:113], ix.AssetClass[:]) {
		t.Fatalf("asset_class misplaced")
	}
	if binary.LittleEndian.Uint64(b[113:121]) != ix.FundingAmount {
		t.Fatalf("funding_amount misplaced")
	}
}

func TestParseInstruction_LengthErrors(t *testing.T) {
	_, err := ParseInstruction(nil)
	mustSwapErrCode(t, err, ERR_INVALID_INPUT_LENGTH)

	for _, ix := range sampleInstructions() {
		b := ix.Encode()
		_, err := ParseInstruction(b[:len(b)-1])
		mustSwapErrCode(t, err, ERR_INVALID_INPUT_LENGTH)
		_, err = ParseInstruction(append(b, 0))
		mustSwapErrCode(t, err, ERR_INVALID_INPUT_LENGTH)
		_, err = ParseInstruction(b[:1])
		mustSwapErrCode(t, err, ERR_INVALID_INPUT_LENGTH)
	}

	// Every other variant's length, carrying this tag.
	lens := []int{PaymentLen, TokenPaymentLen, ReceiverSpendLen, SenderRefundLen}
	for _, tag := range []uint8{TagPayment, TagTokenPayment, TagReceiverSpend, TagSenderRefund} {
		want, _ := expectedLen(tag)
		for _, n := range lens {
			if n == want {
				continue
			}
			b := make([]byte, n)
			b[0] = tag
			_, err := ParseInstruction(b)
			mustSwapErrCode(t, err, ERR_INVALID_INPUT_LENGTH)
		}
	}
}

func TestParseInstruction_UnknownTag(t *testing.T) {
	for _, tag := range []byte{4, 5, 0xff} {
		b := make([]byte, PaymentLen)
		b[0] = tag
		_, err := ParseInstruction(b)
		mustSwapErrCode(t, err, ERR_INVALID_ATOMIC_SWAP_INSTRUCTION)
	}
}

func TestDecodeInstruction_TagMismatch(t *testing.T) {
	refund := sampleInstructions()[3].Encode()
	// Same length as ReceiverSpend, different tag byte.
	_, err := DecodeInstruction(TagReceiverSpend, refund)
	mustSwapErrCode(t, err, ERR_INVALID_ATOMIC_SWAP_INSTRUCTION)

	token := sampleInstructions()[1].Encode()
	_, err = DecodeInstruction(TagPayment, token)
	mustSwapErrCode(t, err, ERR_INVALID_INPUT_LENGTH)
}

type countingVisitor struct {
	seen map[string]int
}

func (v *countingVisitor) VisitPayment(*Payment) error {
	v.seen["Payment"]++
	return nil
}

func (v *countingVisitor) VisitTokenPayment(*TokenPayment) error {
	v.seen["TokenPayment"]++
	return nil
}

func (v *countingVisitor) VisitReceiverSpend(*ReceiverSpend) error {
	v.seen["ReceiverSpend"]++
	return nil
}

func (v *countingVisitor) VisitSenderRefund(*SenderRefund) error {
	v.seen["SenderRefund"]++
	return nil
}

func TestInstruction_AcceptDispatchesOnce(t *testing.T) {
	v := &countingVisitor{seen: map[string]int{}}
	for _, ix := range sampleInstructions() {
		if err := ix.Accept(v); err != nil {
			t.Fatalf("Accept: %v", err)
		}
	}
	for _, name := range []string{"Payment", "TokenPayment", "ReceiverSpend", "SenderRefund"} {
		if v.seen[name] != 1 {
			t.Fatalf("%s visited %d times", name, v.seen[name])
		}
	}
}

package store

import (
	"reflect"
	"testing"

	"etomic.dev/swap/swap"
)

func TestAccount_RoundTrip(t *testing.T) {
	a := Account{Owner: swap.Identity{1}, Native: 99, Data: []byte{1, 2, 3}}
	b, err := encodeAccount(a)
	if err != nil {
		t.Fatalf("encodeAccount: %v", err)
	}
	got, err := decodeAccount(b)
	if err != nil {
		t.Fatalf("decodeAccount: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Fatalf("got %+v, want %+v", got, a)
	}
	if _, err := decodeAccount(b[:10]); err == nil {
		t.Fatalf("expected truncated error")
	}
	if _, err := decodeAccount(append(b, 0)); err == nil {
		t.Fatalf("expected bad length error")
	}
}

func TestAccount_InUse(t *testing.T) {
	if (Account{}).inUse() {
		t.Fatalf("empty account reported in use")
	}
	for _, a := range []Account{{Native: 1}, {Data: []byte{0}}, {Owner: swap.Identity{1}}} {
		if !a.inUse() {
			t.Fatalf("%+v not reported in use", a)
		}
	}
}

func TestJournalEntry_RoundTrip(t *testing.T) {
	e := JournalEntry{
		Seq:        7,
		Time:       1234,
		Tag:        swap.TagSenderRefund,
		Caller:     swap.Identity{1},
		DataVault:  swap.Identity{2},
		FundsVault: swap.Identity{3},
		State:      swap.StateSenderRefunded,
		Movements: []swap.Movement{
			{From: swap.Identity{3}, To: swap.Identity{1}, Asset: swap.Identity{9}, Amount: 50},
		},
	}
	b, err := encodeJournalEntry(e)
	if err != nil {
		t.Fatalf("encodeJournalEntry: %v", err)
	}
	got, err := decodeJournalEntry(7, b)
	if err != nil {
		t.Fatalf("decodeJournalEntry: %v", err)
	}
	if !reflect.DeepEqual(*got, e) {
		t.Fatalf("got %+v, want %+v", *got, e)
	}
	if _, err := decodeJournalEntry(7, b[:len(b)-1]); err == nil {
		t.Fatalf("expected bad movement_count error")
	}
}

func TestTokenKey(t *testing.T) {
	h, a, err := decodeTokenKey(tokenKey(swap.Identity{1}, swap.Identity{2}))
	if err != nil || h != (swap.Identity{1}) || a != (swap.Identity{2}) {
		t.Fatalf("decodeTokenKey: %s %s %v", h, a, err)
	}
	if _, _, err := decodeTokenKey(make([]byte, 63)); err == nil {
		t.Fatalf("expected error")
	}
}

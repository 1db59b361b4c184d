package node

import (
	"encoding/json"
	"testing"

	"etomic.dev/swap/swap"
)

func TestBuildPaymentSelectsVariant(t *testing.T) {
	pid := DefaultConfig().programID()
	terms := SwapTerms{
		SecretHash: Hash(swap.SecretHash([32]byte{})),
		LockTime:   1,
		Amount:     5,
		Receiver:   swap.Identity{9},
	}
	p, err := BuildPayment(pid, terms, 7)
	if err != nil {
		t.Fatalf("BuildPayment: %v", err)
	}
	pay, ok := p.Instruction.(*swap.Payment)
	if !ok {
		t.Fatalf("native terms built %T", p.Instruction)
	}
	if !swap.VerifyVault(p.Accounts.FundsVault, pid, swap.RoleFunds, 1, terms.SecretHash, pay.VaultBump) {
		t.Fatalf("funds vault does not verify")
	}
	if !swap.VerifyVault(p.Accounts.DataVault, pid, swap.RoleData, 1, terms.SecretHash, pay.VaultDataBump) {
		t.Fatalf("data vault does not verify")
	}

	terms.AssetClass = swap.Identity{0xaa}
	p, err = BuildPayment(pid, terms, 7)
	if err != nil {
		t.Fatalf("BuildPayment: %v", err)
	}
	if tp, ok := p.Instruction.(*swap.TokenPayment); !ok || tp.AssetClass != terms.AssetClass {
		t.Fatalf("token terms built %T", p.Instruction)
	}
}

func TestBuildSpendChecksSecret(t *testing.T) {
	pid := DefaultConfig().programID()
	secret := [32]byte{3}
	terms := SwapTerms{SecretHash: Hash(swap.SecretHash(secret)), LockTime: 2, Amount: 1}
	if _, err := BuildSpend(pid, terms, [32]byte{4}); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
	p, err := BuildSpend(pid, terms, secret)
	if err != nil {
		t.Fatalf("BuildSpend: %v", err)
	}
	if p.Instruction.Tag() != swap.TagReceiverSpend {
		t.Fatalf("tag=%d", p.Instruction.Tag())
	}
}

func TestSwapTermsJSON(t *testing.T) {
	terms := SwapTerms{
		SecretHash: Hash{1, 2, 3},
		LockTime:   9,
		Amount:     10,
		Sender:     swap.Identity{1},
		Receiver:   swap.Identity{2},
	}
	b, err := json.Marshal(terms)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got SwapTerms
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v (%s)", err, b)
	}
	if got != terms {
		t.Fatalf("got %+v, want %+v", got, terms)
	}
	if _, err := ParseHash("abcd"); err == nil {
		t.Fatalf("expected error for short hash")
	}
}

package node

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"etomic.dev/swap/crypto"
)

var testKDF = crypto.KDFParams{Time: 1, MemoryKiB: 64, Threads: 1}

func TestKeystoreRoundTrip(t *testing.T) {
	k, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	ks, err := SealKey(k, []byte("pw"), testKDF)
	if err != nil {
		t.Fatalf("SealKey: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keystore.json")
	if err := WriteKeystore(path, ks, false); err != nil {
		t.Fatalf("WriteKeystore: %v", err)
	}
	if err := WriteKeystore(path, ks, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}

	got, err := OpenKeystore(path, []byte("pw"))
	if err != nil {
		t.Fatalf("OpenKeystore: %v", err)
	}
	if got.Identity() != k.Identity() || !bytes.Equal(got.seed, k.seed) {
		t.Fatalf("unsealed key mismatch")
	}

	if _, err := OpenKeystore(path, []byte("nope")); !errors.Is(err, ErrBadPassphrase) {
		t.Fatalf("err=%v, want ErrBadPassphrase", err)
	}
}

func TestKeystoreSignatureVerifies(t *testing.T) {
	k, err := NewKey(bytes.Repeat([]byte{9}, crypto.SeedSize))
	if err != nil {
		t.Fatal(err)
	}
	pid := DefaultConfig().programID()
	sig, err := k.Sign(pid, []byte("ix"))
	if err != nil {
		t.Fatal(err)
	}
	if !crypto.Verify(k.Identity(), pid, []byte("ix"), sig) {
		t.Fatalf("signature does not verify")
	}
}

func TestReadKeystoreRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks.json")
	raw := `{"version":"RBKSv1","kdf":"argon2id","wrap_alg":"AES-256-KW"}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := ReadKeystore(path)
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Fatalf("err=%v", err)
	}
}

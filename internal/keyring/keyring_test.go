package keyring

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestPassphraseLifecycle(t *testing.T) {
	keyring.MockInit()

	const vaultID = "6f1c2d1e-0000-4000-8000-000000000001"

	if HasPassphrase(vaultID) {
		t.Fatal("Expected no passphrase before save")
	}
	if _, err := GetPassphrase(vaultID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := SavePassphrase(vaultID, []byte("p1")); err != nil {
		t.Fatalf("Failed to save passphrase: %v", err)
	}
	if !HasPassphrase(vaultID) {
		t.Fatal("Expected passphrase after save")
	}
	got, err := GetPassphrase(vaultID)
	if err != nil {
		t.Fatalf("Failed to get passphrase: %v", err)
	}
	if string(got) != "p1" {
		t.Errorf("Expected p1, got %q", got)
	}

	if err := DeletePassphrase(vaultID); err != nil {
		t.Fatalf("Failed to delete passphrase: %v", err)
	}
	if HasPassphrase(vaultID) {
		t.Error("Expected no passphrase after delete")
	}
	if err := DeletePassphrase(vaultID); err != nil {
		t.Errorf("Deleting a missing entry should succeed, got %v", err)
	}
}

func TestVaultsAreSeparate(t *testing.T) {
	keyring.MockInit()

	SavePassphrase("vault-a", []byte("a"))
	SavePassphrase("vault-b", []byte("b"))

	a, _ := GetPassphrase("vault-a")
	b, _ := GetPassphrase("vault-b")
	if string(a) != "a" || string(b) != "b" {
		t.Errorf("Unexpected passphrases %q, %q", a, b)
	}
}

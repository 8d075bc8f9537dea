package password

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasherVerifiesLegacyBcrypt(t *testing.T) {
	h, err := NewHasher(cheapConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	ok, err := h.Verify("legacy-password", string(legacy))
	if err != nil || !ok {
		t.Fatalf("expected bcrypt match, ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("wrong-password", string(legacy))
	if err != nil || ok {
		t.Fatalf("expected bcrypt mismatch without error, ok=%v err=%v", ok, err)
	}

	upgrade, err := h.NeedsUpgrade(string(legacy))
	if err != nil || !upgrade {
		t.Fatalf("bcrypt hash should need upgrade, got %v err=%v", upgrade, err)
	}
}

func TestHasherArgonRoundTrip(t *testing.T) {
	h, err := NewHasher(cheapConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	hash, err := h.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	ok, err := h.Verify("correct-horse-battery", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	upgrade, err := h.NeedsUpgrade(hash)
	if err != nil || upgrade {
		t.Fatalf("fresh hash should not need upgrade, got %v err=%v", upgrade, err)
	}
}

func TestHasherUnknownFormat(t *testing.T) {
	h, err := NewHasher(cheapConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	if _, err := h.Verify("whatever", "plaintext"); !errors.Is(err, ErrUnknownHashFormat) {
		t.Fatalf("expected ErrUnknownHashFormat, got %v", err)
	}
}

func TestHashShortPasswordError(t *testing.T) {
	cfg := cheapConfig()
	cfg.MinPasswordBytes = 4
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	if _, err := h.Hash("abc"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := h.Hash("abcd"); err != nil {
		t.Fatalf("4 byte password should hash with MinPasswordBytes=4: %v", err)
	}
}

package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	for _, pw := range []string{"secret123", "p", "пароль", strings.Repeat("x", 72)} {
		hash, err := h.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q): %v", pw, err)
		}
		if hash == pw {
			t.Fatalf("hash must not equal plaintext")
		}
		if !h.Verify(pw, hash) {
			t.Fatalf("Verify(%q) should match its own hash", pw)
		}
		if h.Verify(pw+"!", hash) {
			t.Fatalf("Verify should reject a different password")
		}
	}
}

func TestHasherSaltsEachCall(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	a, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct hashes, got %s twice", a)
	}
	if !h.Verify("secret123", a) || !h.Verify("secret123", b) {
		t.Fatalf("both hashes should verify")
	}
}

func TestHasherMalformedHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	for _, bad := range []string{"", "not-a-hash", "$2a$10$short"} {
		if h.Verify("secret123", bad) {
			t.Fatalf("Verify against %q should fail", bad)
		}
	}
}

func TestHasherUnusableHashCostsFullCompare(t *testing.T) {
	for _, bad := range []string{"", "not-a-hash"} {
		h := NewHasher(bcrypt.MinCost)
		if h.Verify("secret123", bad) {
			t.Fatalf("Verify against %q should fail", bad)
		}
		if h.dummy == nil {
			t.Fatalf("Verify against %q returned without a dummy comparison", bad)
		}
	}

	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h.Verify("wrong", hash) {
		t.Fatal("wrong password should not verify")
	}
	if h.dummy != nil {
		t.Fatal("a real mismatch already paid for its comparison")
	}
}

func TestHasherRejectsEmpty(t *testing.T) {
	if _, err := NewHasher(bcrypt.MinCost).Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	cases := map[int]int{
		0:   DefaultCost,
		1:   bcrypt.MinCost,
		12:  12,
		100: bcrypt.MaxCost,
	}
	for in, want := range cases {
		if got := NewHasher(in).Cost(); got != want {
			t.Fatalf("NewHasher(%d).Cost()=%d, want %d", in, got, want)
		}
	}
}

func TestHashUsesConfiguredCost(t *testing.T) {
	hash, err := NewHasher(5).Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost: %v", err)
	}
	if cost != 5 {
		t.Fatalf("unexpected cost %d", cost)
	}
}

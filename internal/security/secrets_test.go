package security

import (
	"encoding/base64"
	"testing"
)

func TestGenerateSecret(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s, err := GenerateSecret()
		if err != nil {
			t.Fatalf("GenerateSecret: %v", err)
		}
		b, err := base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			t.Fatalf("secret is not base64url: %v", err)
		}
		if len(b) != SecretBytes {
			t.Fatalf("secret has %d bytes, want %d", len(b), SecretBytes)
		}
		if seen[s] {
			t.Fatal("duplicate secret generated")
		}
		seen[s] = true
	}
}

func TestHashSecret(t *testing.T) {
	a := HashSecret("abc")
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64", len(a))
	}
	if a != HashSecret("abc") {
		t.Fatal("hash is not deterministic")
	}
	if a == HashSecret("abd") {
		t.Fatal("different inputs produced the same hash")
	}
	// sha256("abc")
	if a != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected digest %s", a)
	}
}

func TestSecretMatches(t *testing.T) {
	raw, _ := GenerateSecret()
	stored := HashSecret(raw)
	if !SecretMatches(raw, stored) {
		t.Fatal("SecretMatches should accept the original secret")
	}
	if SecretMatches(raw+"x", stored) {
		t.Fatal("SecretMatches should reject a different secret")
	}
}

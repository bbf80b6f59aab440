package password

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("tr3s-s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected digest format: %s", encoded)
	}
	if err := Verify("tr3s-s3cret", encoded); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	encoded, err := Hash("correct")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := Verify("incorrect", encoded); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if err := Verify("anything", "not-a-digest"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := Hash("same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct salts to produce distinct digests")
	}
}

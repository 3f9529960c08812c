package security_test

import (
	"errors"
	"testing"
	"time"

	"github.com/memeforge-network/memeforge/internal/security"
)

var testNow = time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)

func TestKeypair_Persistence(t *testing.T) {
	dir := t.TempDir()

	kp1, err := security.LoadOrCreateKeypair(dir)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	kp2, err := security.LoadOrCreateKeypair(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if kp1.PublicKeyHex() != kp2.PublicKeyHex() {
		t.Error("reload produced a different keypair")
	}
}

func TestSignVerify(t *testing.T) {
	kp, err := security.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	msg := []byte("hello memeforge")
	sig := kp.Sign(msg)
	if !security.Verify(msg, sig, kp.Public) {
		t.Error("valid signature rejected")
	}
	if security.Verify([]byte("tampered"), sig, kp.Public) {
		t.Error("tampered message accepted")
	}
}

func TestShareToken_Roundtrip(t *testing.T) {
	kp, _ := security.GenerateKeypair()

	token := kp.MintShareToken("alice", "m-42", security.DefaultShareTokenTTL, testNow)
	if err := kp.VerifyShareToken(token, "alice", "m-42", testNow.Add(time.Hour)); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
}

func TestShareToken_Expired(t *testing.T) {
	kp, _ := security.GenerateKeypair()

	token := kp.MintShareToken("alice", "m-42", time.Hour, testNow)
	err := kp.VerifyShareToken(token, "alice", "m-42", testNow.Add(2*time.Hour))
	if !errors.Is(err, security.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestShareToken_Mismatch(t *testing.T) {
	kp, _ := security.GenerateKeypair()
	token := kp.MintShareToken("alice", "m-42", time.Hour, testNow)

	if err := kp.VerifyShareToken(token, "mallory", "m-42", testNow); !errors.Is(err, security.ErrTokenMismatch) {
		t.Errorf("wrong actor: got %v", err)
	}
	if err := kp.VerifyShareToken(token, "alice", "m-43", testNow); !errors.Is(err, security.ErrTokenMismatch) {
		t.Errorf("wrong subject: got %v", err)
	}
}

func TestShareToken_Forged(t *testing.T) {
	kp, _ := security.GenerateKeypair()
	other, _ := security.GenerateKeypair()

	token := other.MintShareToken("alice", "m-42", time.Hour, testNow)
	if err := kp.VerifyShareToken(token, "alice", "m-42", testNow); !errors.Is(err, security.ErrTokenForged) {
		t.Errorf("foreign-key token: got %v", err)
	}

	if err := kp.VerifyShareToken("not-a-token", "alice", "m-42", testNow); !errors.Is(err, security.ErrTokenMalformed) {
		t.Errorf("garbage token: got %v", err)
	}
}

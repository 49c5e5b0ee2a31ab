package crypto

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

var testKeyHex = strings.Repeat("ab", 32)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte(`{"admin_id":"admin-1"}`)

	token, err := EncryptAESGCM(testKeyHex, plaintext)
	if err != nil {
		t.Fatalf("EncryptAESGCM failed: %v", err)
	}

	got, err := DecryptAESGCM(testKeyHex, token)
	if err != nil {
		t.Fatalf("DecryptAESGCM failed: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestEncryptProducesUniqueTokens(t *testing.T) {
	a, err := EncryptAESGCM(testKeyHex, []byte("same payload"))
	if err != nil {
		t.Fatalf("EncryptAESGCM failed: %v", err)
	}
	b, err := EncryptAESGCM(testKeyHex, []byte("same payload"))
	if err != nil {
		t.Fatalf("EncryptAESGCM failed: %v", err)
	}
	if a == b {
		t.Error("two encryptions of the same payload produced identical tokens")
	}
}

func TestDecryptErrors(t *testing.T) {
	validToken, err := EncryptAESGCM(testKeyHex, []byte("payload"))
	if err != nil {
		t.Fatalf("EncryptAESGCM failed: %v", err)
	}

	t.Run("wrong key size", func(t *testing.T) {
		if _, err := DecryptAESGCM(hex.EncodeToString([]byte("short")), validToken); !errors.Is(err, ErrInvalidAESKeySize) {
			t.Errorf("expected ErrInvalidAESKeySize, got %v", err)
		}
	})

	t.Run("not base64", func(t *testing.T) {
		if _, err := DecryptAESGCM(testKeyHex, "%%%not-base64%%%"); !errors.Is(err, ErrInvalidTokenFormat) {
			t.Errorf("expected ErrInvalidTokenFormat, got %v", err)
		}
	})

	t.Run("too short", func(t *testing.T) {
		if _, err := DecryptAESGCM(testKeyHex, "YWJj"); !errors.Is(err, ErrCiphertextTooShort) {
			t.Errorf("expected ErrCiphertextTooShort, got %v", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		otherKey := strings.Repeat("cd", 32)
		if _, err := DecryptAESGCM(otherKey, validToken); !errors.Is(err, ErrTokenDecryptionFailed) {
			t.Errorf("expected ErrTokenDecryptionFailed, got %v", err)
		}
	})

	t.Run("tampered token", func(t *testing.T) {
		tampered := validToken[:len(validToken)-4] + "AAAA"
		if _, err := DecryptAESGCM(testKeyHex, tampered); err == nil {
			t.Error("tampered token decrypted cleanly")
		}
	})
}

func TestSha256Hex(t *testing.T) {
	got := Sha256Hex("session-id")
	if len(got) != 64 {
		t.Fatalf("digest length %d, want 64 hex chars", len(got))
	}
	if got != Sha256Hex("session-id") {
		t.Error("digest not deterministic")
	}
	if got == Sha256Hex("other-session") {
		t.Error("different inputs collided")
	}
}

package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"os"
	"testing"
)

func seal(t *testing.T, key [32]byte, plaintext string) string {
	t.Helper()
	block, err := aes.NewCipher(key[:])
	if err != nil {
		t.Fatal(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatal(err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		t.Fatal(err)
	}
	ct := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ct)
}

func TestDecryptRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))
	p := NewProvider(key[:])

	enc := seal(t, key, "sk-live-abc123")
	got, err := p.Decrypt(enc, "")
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != "sk-live-abc123" {
		t.Errorf("Decrypt() = %q, want sk-live-abc123", got)
	}
}

func TestDecryptFallsBackToEnv(t *testing.T) {
	p := NewProvider(nil)
	os.Setenv("URLSCAN_TEST_FALLBACK_KEY", "env-key-value")
	defer os.Unsetenv("URLSCAN_TEST_FALLBACK_KEY")

	got, err := p.Decrypt("", "URLSCAN_TEST_FALLBACK_KEY")
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != "env-key-value" {
		t.Errorf("Decrypt() = %q, want env-key-value", got)
	}
}

func TestDecryptFailsWithNoKeyAndNoFallback(t *testing.T) {
	p := NewProvider(nil)
	if _, err := p.Decrypt("", ""); err == nil {
		t.Fatal("Decrypt() = nil error, want failure with no key and no fallback")
	}
}

func TestDecryptGarbageFallsBack(t *testing.T) {
	p := NewProvider([]byte("0123456789abcdef0123456789abcdef"))
	os.Setenv("URLSCAN_TEST_FALLBACK_KEY2", "env-key-value-2")
	defer os.Unsetenv("URLSCAN_TEST_FALLBACK_KEY2")

	got, err := p.Decrypt("not-valid-base64-or-ciphertext!!", "URLSCAN_TEST_FALLBACK_KEY2")
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != "env-key-value-2" {
		t.Errorf("Decrypt() = %q, want env-key-value-2", got)
	}
}

package security

import "testing"

func TestEncryptDecryptAPIKey(t *testing.T) {
	secret := "app-secret"
	key := "AIzaSyTestKey1234"

	encrypted, err := EncryptAPIKey(key, secret)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if encrypted == key {
		t.Fatal("encrypted key must not equal plaintext")
	}

	decrypted, err := DecryptAPIKey(encrypted, secret)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if decrypted != key {
		t.Fatalf("round trip mismatch: got %q, want %q", decrypted, key)
	}

	if _, err := DecryptAPIKey(encrypted, "wrong-secret"); err == nil {
		t.Fatal("decryption with wrong secret must fail")
	}
	if _, err := DecryptAPIKey("not base64 at all!", secret); err == nil {
		t.Fatal("garbage input must fail")
	}
}

func TestEncryptAPIKeyRequiresSecret(t *testing.T) {
	if _, err := EncryptAPIKey("key", ""); err == nil {
		t.Fatal("empty secret must be rejected")
	}
}

func TestKeyHint(t *testing.T) {
	if got := KeyHint("AIzaSy1234"); got != "1234" {
		t.Errorf("got %q, want %q", got, "1234")
	}
	if got := KeyHint("ab"); got != "ab" {
		t.Errorf("short keys are returned as-is, got %q", got)
	}
}

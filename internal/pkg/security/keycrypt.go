package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

// EncryptAPIKey seals a provider API key with AES-GCM. The cipher key is
// derived from the app secret, so rotating the secret invalidates every
// stored key.
func EncryptAPIKey(plaintext, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required for key encryption")
	}
	gcm, err := newGCM(secret)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecryptAPIKey reverses EncryptAPIKey.
func DecryptAPIKey(encrypted, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required for key decryption")
	}
	gcm, err := newGCM(secret)
	if err != nil {
		return "", err
	}

	raw, err := base64.RawURLEncoding.DecodeString(encrypted)
	if err != nil {
		return "", errors.New("invalid encrypted key encoding")
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("encrypted key too short")
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.New("failed to decrypt key")
	}
	return string(plaintext), nil
}

// KeyHint returns the displayable tail of an API key.
func KeyHint(key string) string {
	if len(key) <= 4 {
		return key
	}
	return key[len(key)-4:]
}

func newGCM(secret string) (cipher.AEAD, error) {
	derived := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(derived[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

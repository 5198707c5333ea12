// Package secrets encrypts credential values so that the environment a
// trigger runs in need not hold them in plaintext. Encrypted values carry
// the $ENC: prefix and are sealed with AES-256-GCM under a hex master key.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const encryptedPrefix = "$ENC:"

// Cipher seals and opens credential values.
type Cipher struct {
	gcm cipher.AEAD
}

// NewCipher creates a cipher from a hex-encoded 256-bit key.
func NewCipher(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Cipher{gcm: gcm}, nil
}

// GenerateKey returns a random hex-encoded 256-bit master key.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt seals plaintext and returns it as a $ENC: value.
// Layout before base64: nonce || ciphertext || tag.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a $ENC: value. Values without the prefix are returned
// unchanged, so plaintext and encrypted credentials can be mixed.
func (c *Cipher) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	sealed, err := base64.StdEncoding.DecodeString(value[len(encryptedPrefix):])
	if err != nil {
		return "", fmt.Errorf("decode encrypted value: %w", err)
	}
	n := c.gcm.NonceSize()
	if len(sealed) < n {
		return "", fmt.Errorf("encrypted value too short")
	}
	plaintext, err := c.gcm.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value carries a non-empty $ENC: payload.
func IsEncrypted(value string) bool {
	return len(value) > len(encryptedPrefix) && strings.HasPrefix(value, encryptedPrefix)
}

// Package crypto seals secrets stored in topology documents, so that node
// passwords and key passphrases need not be kept in clear text.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// SealedPrefix marks a sealed value, e.g. "enc:Q2lwaGVy...".
const SealedPrefix = "enc:"

var (
	// ErrInvalidKey is returned when the secret key is empty.
	ErrInvalidKey = errors.New("invalid secret key: must not be empty")
	// ErrUnsealFailed is returned for malformed sealed values or a wrong key.
	ErrUnsealFailed = errors.New("unseal failed: invalid ciphertext or wrong key")
)

// IsSealed reports whether value carries SealedPrefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// Sealer encrypts and decrypts secrets with AES-256-GCM.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer creates a Sealer from a key string. A base64 string decoding to
// exactly 32 bytes is used as the key (openssl rand -base64 32); anything
// else is treated as a passphrase and hashed with SHA-256.
func NewSealer(key string) (*Sealer, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != 32 {
		sum := sha256.Sum256([]byte(key))
		raw = sum[:]
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{gcm: gcm}, nil
}

// Seal returns SealedPrefix + base64(nonce || ciphertext || tag).
// The empty string stays empty.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Unseal decrypts a sealed value. Values without SealedPrefix are returned
// unchanged.
func (s *Sealer) Unseal(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrUnsealFailed)
	}
	nonceSize := s.gcm.NonceSize()
	if len(data) < nonceSize+s.gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrUnsealFailed)
	}

	plaintext, err := s.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrUnsealFailed)
	}
	return string(plaintext), nil
}

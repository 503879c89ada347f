package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// KeyVersion tags stored ciphertexts with the construction that produced them.
const KeyVersion = "v1"

// Vault encrypts opaque byte payloads (documents, offer letters) under one
// process-wide AES-256 key. Each call uses a fresh random nonce, stored
// alongside the ciphertext as the IV. GCM authenticates the ciphertext, so a
// tampered blob fails to decrypt instead of yielding garbage.
type Vault struct {
	aead cipher.AEAD
}

// NewVault builds a vault from a 32-byte master key.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

// NewVaultFromEnv loads AES_MASTER_KEY (64 hex characters). Absence or a
// malformed key is a fatal startup condition; the caller decides how to die.
func NewVaultFromEnv() (*Vault, error) {
	raw := os.Getenv("AES_MASTER_KEY")
	if raw == "" {
		return nil, errors.New("AES_MASTER_KEY is not set")
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("AES_MASTER_KEY is not valid hex: %w", err)
	}
	return NewVault(key)
}

// Encrypt seals the plaintext and returns (ciphertext, iv).
func (v *Vault) Encrypt(plaintext []byte) ([]byte, []byte, error) {
	iv := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("generate iv: %w", err)
	}
	return v.aead.Seal(nil, iv, plaintext, nil), iv, nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any modification of the
// ciphertext or iv makes this fail.
func (v *Vault) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	if len(iv) != v.aead.NonceSize() {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", v.aead.NonceSize(), len(iv))
	}
	plain, err := v.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}

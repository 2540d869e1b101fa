// Package cryptox seals small secrets at rest (the stored bearer token and
// user profile) with XChaCha20-Poly1305 under a key kept in a local file.
package cryptox

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dmitrijs2005/storefront/internal/common"
)

// ErrCorrupt is returned by Open when the sealed value fails authentication
// or is too short to contain a nonce.
var ErrCorrupt = errors.New("sealed value is corrupt")

// Sealer encrypts and authenticates values with a fixed 32-byte key.
type Sealer struct {
	key []byte
}

// NewSealer returns a Sealer for key, which must be chacha20poly1305.KeySize
// bytes long.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("sealer key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Sealer{key: append([]byte(nil), key...)}, nil
}

// Seal returns nonce||ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, ErrCorrupt
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCorrupt
	}
	return plaintext, nil
}

// LoadOrCreateKey reads the key file at path, creating it with a fresh
// random key (mode 0600) when it does not exist.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("key file %s: want %d bytes, got %d", path, chacha20poly1305.KeySize, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key = common.GenerateRandByteArray(chacha20poly1305.KeySize)
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}

// Package secretbox seals short strings with authenticated encryption so
// they can ride in client-side cookies without exposing or allowing
// modification of their contents.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeyLength is the required master key size in bytes.
	KeyLength = 32

	nonceLength = 24
)

var (
	ErrInvalidKey = errors.New("secretbox: key must be 32 bytes")
	// ErrOpenFailed covers truncated, corrupted, and forged payloads alike;
	// callers must treat it as "no value", never as a partial value.
	ErrOpenFailed = errors.New("secretbox: cannot open sealed value")
)

// Box seals and opens values under a single symmetric master key.
type Box struct {
	key [KeyLength]byte
}

// New builds a Box from a raw 32-byte key.
func New(key []byte) (*Box, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKey
	}
	b := &Box{}
	copy(b.key[:], key)
	return b, nil
}

// NewFromBase64 builds a Box from a standard-base64 encoded key, the format
// produced by `openssl rand -base64 32`.
func NewFromBase64(encoded string) (*Box, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return New(key)
}

// Seal encrypts plaintext and returns base64url(nonce || ciphertext).
func (b *Box) Seal(plaintext []byte) (string, error) {
	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &b.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal. Any tampering, truncation, or key
// mismatch yields ErrOpenFailed.
func (b *Box) Open(encoded string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) <= nonceLength {
		return nil, ErrOpenFailed
	}
	var nonce [nonceLength]byte
	copy(nonce[:], raw[:nonceLength])
	plaintext, ok := secretbox.Open(nil, raw[nonceLength:], &nonce, &b.key)
	if !ok {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

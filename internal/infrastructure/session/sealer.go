// Package session stores the Odoo credentials behind gateway tokens. Entries
// are sealed with NaCl secretbox so a leaked store does not leak passwords.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// ErrInvalidKey is returned when the sealing key is not 32 bytes
var ErrInvalidKey = errors.New("session key must be 32 bytes (raw or 64 hex chars)")

// ErrUnseal is returned when a sealed value is corrupt or sealed with another key
var ErrUnseal = errors.New("failed to unseal session")

// Sealer encrypts and authenticates session payloads
type Sealer struct {
	key [keySize]byte
}

// NewSealer accepts a raw 32 byte key or its hex encoding
func NewSealer(key string) (*Sealer, error) {
	raw := []byte(key)
	if len(key) == 2*keySize {
		decoded, err := hex.DecodeString(key)
		if err == nil {
			raw = decoded
		}
	}
	if len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	s := &Sealer{}
	copy(s.key[:], raw)
	return s, nil
}

// Seal returns nonce || secretbox(plaintext)
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open reverses Seal
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrUnseal
	}
	return out, nil
}

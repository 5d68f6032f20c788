// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package cryptobox seals short strings for storage at rest.

It wraps XChaCha20-Poly1305 with a key derived from the configured
passphrase, producing base64 ciphertext suitable for the key-value store.

Security note: because the passphrase ships inside the client, this provides
no real confidentiality against a local attacker who can read the binary or
its configuration. It exists for storage-format compatibility with the web
client and to keep tokens out of casual filesystem greps, nothing more. Do
not mistake it for a secret store.
*/
package cryptobox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt is returned when ciphertext cannot be opened: wrong key,
// truncation, or tampering. Callers treat it as "value absent".
var ErrDecrypt = errors.New("cryptobox: cannot decrypt value")

// Box seals and opens strings with a single symmetric key.
//
// Both token fields of a credential envelope must use the same Box; mixing
// sealed and plain entries is a corruption the auth layer rejects on load.
type Box struct {
	key []byte
}

// New derives a sealing key from the passphrase.
//
// An empty passphrase returns a nil Box, which callers interpret as
// "encryption disabled": tokens are stored in plaintext.
func New(passphrase string) *Box {
	if passphrase == "" {
		return nil
	}

	key := sha256.Sum256([]byte(passphrase))
	return &Box{key: key[:]}
}

// Seal encrypts plaintext and returns base64 ciphertext with the random
// nonce prepended.
func (box *Box) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(box.key)
	if err != nil {
		return "", fmt.Errorf("cryptobox: init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cryptobox: nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts base64 ciphertext produced by [Box.Seal].
//
// Returns [ErrDecrypt] for any malformed or tampered input; it never panics.
func (box *Box) Open(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}

	aead, err := chacha20poly1305.NewX(box.key)
	if err != nil {
		return "", fmt.Errorf("cryptobox: init cipher: %w", err)
	}

	if len(raw) < aead.NonceSize() {
		return "", ErrDecrypt
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}

	return string(plaintext), nil
}

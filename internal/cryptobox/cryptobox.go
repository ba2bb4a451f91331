// Package cryptobox seals and opens JSON payloads with AES-256-GCM.
// The wire format is base64(nonce | tag | ciphertext), which keeps sealed
// blobs storable as plain text columns.
package cryptobox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	KeySize   = 32
	nonceSize = 12
	tagSize   = 16
)

// ErrDecrypt marks any failure to open a sealed blob: truncation, tag
// mismatch, or malformed JSON after decryption. Callers on read paths treat
// it as "payload unavailable", not as fatal.
var ErrDecrypt = errors.New("cryptobox: decrypt failed")

// Box performs authenticated encryption with a single symmetric key.
// The key is injected at construction; there is no package-level key state.
type Box struct {
	aead cipher.AEAD
}

// New creates a Box from a 32-byte key.
func New(key []byte) (*Box, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cryptobox: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal marshals v to JSON and encrypts it under a fresh random nonce.
// Nonces must never repeat for a key; 96 random bits per call carry that.
func (b *Box) Seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cryptobox: marshal: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cryptobox: nonce: %w", err)
	}

	sealed := b.aead.Seal(nil, nonce, plaintext, nil)
	// GCM appends the tag after the ciphertext; the wire format wants it first.
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, nonceSize+tagSize+len(ct))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Open decrypts a sealed blob into out. Any failure returns an error
// wrapping ErrDecrypt and leaves out untouched.
func (b *Box) Open(blob string, out any) error {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return fmt.Errorf("%w: bad base64", ErrDecrypt)
	}
	if len(raw) < nonceSize+tagSize {
		return fmt.Errorf("%w: blob truncated", ErrDecrypt)
	}

	nonce := raw[:nonceSize]
	tag := raw[nonceSize : nonceSize+tagSize]
	ct := raw[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := b.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: bad payload json", ErrDecrypt)
	}
	return nil
}

// OpenMaybe is the optional-decrypt contract: it reports whether the blob
// opened cleanly instead of returning an error.
func (b *Box) OpenMaybe(blob string, out any) bool {
	return b.Open(blob, out) == nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package secret seals small values, such as the generation API key, before
// they are written to the local database.
//
// Sealed values use AES-256-GCM and are stored as "ENC:" + base64(nonce |
// ciphertext | tag). The key is either random bytes kept in a 0600 key file,
// or derived from a passphrase with PBKDF2-SHA-256 and a stored salt.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/habitrun/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// Prefix marks a sealed value.
	Prefix = "ENC:"

	// KeySize is the AES-256 key size in bytes.
	KeySize = 32

	// SaltSize is the PBKDF2 salt size in bytes.
	SaltSize = 32

	// DefaultIterations follows the OWASP 2023 figure for PBKDF2-SHA-256.
	DefaultIterations = 600000
)

var (
	// ErrInvalidSealed is returned for values with the prefix but a bad body.
	ErrInvalidSealed = errors.New("sealed value is malformed")

	// ErrOpenFailed is returned when authentication fails, usually because
	// the key changed.
	ErrOpenFailed = errors.New("sealed value could not be opened (wrong key?)")
)

// =============================================================================
// BOX
// =============================================================================

// Options configures key material for a Box.
type Options struct {
	// KeyPath is the random key file, or the salt file base when a
	// passphrase is set (the salt lives at KeyPath + ".salt").
	KeyPath string

	// Passphrase, when set, derives the key instead of using a key file.
	Passphrase string

	// Iterations overrides DefaultIterations.
	Iterations int
}

// Box seals and opens strings.
type Box struct {
	aead cipher.AEAD
}

// Open loads or creates key material described by opts and returns a Box.
func Open(opts Options) (*Box, error) {
	if opts.KeyPath == "" {
		return nil, errors.New("secret: key path is required")
	}

	var key []byte
	var err error
	if opts.Passphrase != "" {
		key, err = derivedKey(opts)
	} else {
		key, err = fileKey(opts.KeyPath)
	}
	if err != nil {
		return nil, err
	}
	defer zero(key)

	return New(key)
}

// New builds a Box from a raw 32-byte key.
func New(key []byte) (*Box, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("secret: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext. The empty string stays empty so "no key" is
// still recognisable without opening anything.
func (b *Box) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Unseal decrypts a value produced by Seal. Values without the prefix are
// returned unchanged, which lets plaintext records from older exports load.
func (b *Box) Unseal(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSealed, err)
	}
	ns := b.aead.NonceSize()
	if len(data) < ns {
		return "", ErrInvalidSealed
	}
	plain, err := b.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", ErrOpenFailed
	}
	return string(plain), nil
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// =============================================================================
// KEY MATERIAL
// =============================================================================

func fileKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != KeySize {
			return nil, fmt.Errorf("secret: key file %s has %d bytes, want %d", path, len(key), KeySize)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key = make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := util.AtomicWriteFile(path, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to save key file: %w", err)
	}
	return key, nil
}

func derivedKey(opts Options) ([]byte, error) {
	saltPath := opts.KeyPath + ".salt"
	salt, err := os.ReadFile(saltPath)
	if errors.Is(err, os.ErrNotExist) {
		salt = make([]byte, SaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := util.AtomicWriteFile(saltPath, salt, 0600); err != nil {
			return nil, fmt.Errorf("failed to save salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}

	iterations := opts.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key([]byte(opts.Passphrase), salt, iterations, KeySize, sha256.New), nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

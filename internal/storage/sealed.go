package storage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/yndnr/walletlink-go/internal/core/domain"
)

// sealedVersion prefixes every sealed value so the format can evolve.
const sealedVersion = "v1:"

// Sealed encrypts values with XChaCha20-Poly1305 before handing them to
// the underlying store. The key name is bound as additional data, so a
// value copied under another key fails to open.
type Sealed struct {
	inner Store
	aead  aeadCipher
}

type aeadCipher interface {
	NonceSize() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// NewSealed wraps inner with a 32-byte key.
func NewSealed(inner Store, key []byte) (*Sealed, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, domain.ErrInvalidArgument.WithDetails(
			fmt.Sprintf("seal key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key)))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed: init cipher: %w", err)
	}
	return &Sealed{inner: inner, aead: aead}, nil
}

// NewSealedFromHex wraps inner with a hex-encoded key.
func NewSealedFromHex(inner Store, hexKey string) (*Sealed, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("seal key is not hex").WithCause(err)
	}
	return NewSealed(inner, key)
}

// Get opens the value stored under key.
func (s *Sealed) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plain, err := s.open(key, raw)
	if err != nil {
		return "", false, err
	}
	return plain, true, nil
}

// Set seals value and stores it under key.
func (s *Sealed) Set(ctx context.Context, key, value string) error {
	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

// Remove deletes key from the underlying store.
func (s *Sealed) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

// Close closes the underlying store.
func (s *Sealed) Close() error {
	return s.inner.Close()
}

func (s *Sealed) seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("sealed: nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return sealedVersion + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *Sealed) open(key, raw string) (string, error) {
	if len(raw) < len(sealedVersion) || raw[:len(sealedVersion)] != sealedVersion {
		return "", domain.ErrStorage.WithDetails("value under " + key + " is not sealed")
	}
	data, err := base64.RawStdEncoding.DecodeString(raw[len(sealedVersion):])
	if err != nil {
		return "", domain.ErrStorage.WithDetails("decode sealed " + key).WithCause(err)
	}
	ns := s.aead.NonceSize()
	if len(data) < ns {
		return "", domain.ErrStorage.WithDetails("sealed value under " + key + " too short")
	}
	plain, err := s.aead.Open(nil, data[:ns], data[ns:], []byte(key))
	if err != nil {
		return "", domain.ErrStorage.WithDetails("open sealed " + key).WithCause(err)
	}
	return string(plain), nil
}

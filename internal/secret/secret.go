// Package secret encrypts the stored portal password with a key bound to
// this machine.
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

	"golang.org/x/crypto/hkdf"

	"autologin/internal/apperr"
)

const (
	keySize = 32
	info    = "autologin password v1"
)

// Cipher holds the derived key.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives an AES-256-GCM key from machineKey.
func NewCipher(machineKey []byte) (*Cipher, error) {
	if len(machineKey) == 0 {
		return nil, apperr.New(apperr.KindCrypto, "derive key", errors.New("empty machine key"))
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, machineKey, nil, []byte(info)), key); err != nil {
		return nil, apperr.New(apperr.KindCrypto, "derive key", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperr.New(apperr.KindCrypto, "create block cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperr.New(apperr.KindCrypto, "create gcm", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt returns base64(nonce || ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", apperr.New(apperr.KindCrypto, "generate nonce", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any failure is a *apperr.DecryptionError whose
// message is safe to show to the user.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", apperr.NewDecryptionError(fmt.Sprintf("decode base64: %v", err))
	}
	n := c.aead.NonceSize()
	if len(raw) < n+c.aead.Overhead() {
		return "", apperr.NewDecryptionError("ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", apperr.NewDecryptionError(fmt.Sprintf("open: %v", err))
	}
	return string(plain), nil
}

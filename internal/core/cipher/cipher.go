// Package cipher encrypts individual payload values with the pre-shared key
// the receiving server decrypts with.
//
// The scheme is AES in ECB mode with PKCS#7 padding and standard base64
// output. It is deterministic: the same plaintext always yields the same
// ciphertext. The server depends on this exact construction, so it must not
// be swapped for a randomized mode without a coordinated server change.
package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// DefaultKey is the key the receiving server ships with.
const DefaultKey = "MySecretKey12345"

var (
	// ErrInvalidKey is returned when the key is not 16, 24 or 32 bytes.
	ErrInvalidKey = errors.New("cipher: key must be 16, 24 or 32 bytes")

	// ErrInvalidCiphertext is returned when the input is not valid base64,
	// not a whole number of blocks, or carries bad padding.
	ErrInvalidCiphertext = errors.New("cipher: invalid ciphertext")
)

// ECB is a deterministic AES-ECB value cipher. It is safe for concurrent use.
type ECB struct {
	block stdcipher.Block
}

// New builds an ECB cipher from the UTF-8 bytes of key.
func New(key string) (*ECB, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidKey, len(key))
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("cipher: init aes: %w", err)
	}
	return &ECB{block: block}, nil
}

// Encrypt pads, encrypts and base64-encodes plaintext.
func (c *ECB) Encrypt(plaintext string) (string, error) {
	bs := c.block.BlockSize()
	padded := pad([]byte(plaintext), bs)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += bs {
		c.block.Encrypt(out[i:i+bs], padded[i:i+bs])
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *ECB) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	bs := c.block.BlockSize()
	if len(raw) == 0 || len(raw)%bs != 0 {
		return "", fmt.Errorf("%w: length %d is not a multiple of %d", ErrInvalidCiphertext, len(raw), bs)
	}
	plain := make([]byte, len(raw))
	for i := 0; i < len(raw); i += bs {
		c.block.Decrypt(plain[i:i+bs], raw[i:i+bs])
	}
	unpadded, err := unpad(plain, bs)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, blockSize int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrInvalidCiphertext)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrInvalidCiphertext)
		}
	}
	return b[:len(b)-n], nil
}

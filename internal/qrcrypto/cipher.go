package qrcrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyLength is returned when the AES key is not 16, 24 or 32 bytes.
	ErrInvalidKeyLength = errors.New("invalid key length")
	// ErrInvalidIVLength is returned when the IV is not one AES block.
	ErrInvalidIVLength = errors.New("invalid iv length")
	// ErrInvalidPadding is returned when decrypted data carries bad PKCS#7 padding.
	ErrInvalidPadding = errors.New("invalid padding")
	// ErrInvalidCiphertext is returned when ciphertext is empty or not block-aligned.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// Encrypt encrypts plaintext with AES-CBC under the given key and IV,
// applying PKCS#7 padding.
func Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	padded := pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return unpad(out, aes.BlockSize)
}

// Sign computes an HMAC-SHA256 tag over data.
func Sign(data, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	return mac.Sum(nil)
}

// Verify checks an HMAC-SHA256 tag in constant time.
func Verify(data, tag, secret []byte) bool {
	return hmac.Equal(tag, Sign(data, secret))
}

// Hash computes a SHA-256 digest.
func Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// SecureCompare compares two strings without leaking a timing signal on the
// position of the first difference.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func newBlock(key, iv []byte) (cipher.Block, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKeyLength, len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidIVLength, len(iv))
	}
	return aes.NewCipher(key)
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}

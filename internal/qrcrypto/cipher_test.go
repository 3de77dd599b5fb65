package qrcrypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKey = []byte("0123456789abcdef0123456789abcdef")
	testIV  = []byte("abcdef0123456789")
)

func TestEncryptDecrypt(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{name: "short text", plaintext: []byte("hello")},
		{name: "empty input", plaintext: []byte{}},
		{name: "exactly one block", plaintext: bytes.Repeat([]byte{0x41}, 16)},
		{name: "multiple blocks", plaintext: bytes.Repeat([]byte("attendance"), 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := Encrypt(tt.plaintext, testKey, testIV)
			require.NoError(t, err)
			assert.NotEqual(t, tt.plaintext, ciphertext)
			assert.Zero(t, len(ciphertext)%16)

			plaintext, err := Decrypt(ciphertext, testKey, testIV)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, plaintext)
		})
	}
}

func TestEncrypt_InvalidKey(t *testing.T) {
	_, err := Encrypt([]byte("data"), []byte("short"), testIV)
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestEncrypt_InvalidIV(t *testing.T) {
	_, err := Encrypt([]byte("data"), testKey, []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidIVLength)
}

func TestDecrypt_InvalidCiphertext(t *testing.T) {
	_, err := Decrypt([]byte("not-block-aligned"), testKey, testIV)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = Decrypt(nil, testKey, testIV)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDecrypt_WrongKeyFailsPadding(t *testing.T) {
	ciphertext, err := Encrypt([]byte("some session payload"), testKey, testIV)
	require.NoError(t, err)

	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	plaintext, err := Decrypt(ciphertext, otherKey, testIV)
	if err == nil {
		// Bad padding is not guaranteed for every wrong key, but the
		// plaintext must never match.
		assert.NotEqual(t, []byte("some session payload"), plaintext)
	} else {
		assert.ErrorIs(t, err, ErrInvalidPadding)
	}
}

func TestSignVerify(t *testing.T) {
	secret := []byte("signing-secret")
	data := []byte("payload bytes")

	tag := Sign(data, secret)
	assert.Len(t, tag, 32)
	assert.True(t, Verify(data, tag, secret))
	assert.False(t, Verify([]byte("tampered bytes"), tag, secret))
	assert.False(t, Verify(data, tag, []byte("other-secret")))

	tag[0] ^= 0xff
	assert.False(t, Verify(data, tag, secret))
}

func TestHash_Deterministic(t *testing.T) {
	assert.Equal(t, Hash([]byte("x")), Hash([]byte("x")))
	assert.NotEqual(t, Hash([]byte("x")), Hash([]byte("y")))
	assert.Len(t, Hash(nil), 32)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("abcd1234", "abcd1234"))
	assert.False(t, SecureCompare("abcd1234", "abcd1235"))
	assert.False(t, SecureCompare("abcd", "abcd1234"))
	assert.True(t, SecureCompare("", ""))
}

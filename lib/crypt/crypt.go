package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// IVSize is the size of the CBC initialization vector.
const IVSize = aes.BlockSize

// Errors returned by crypt operations.
var (
	ErrInvalidKey        = errors.New("invalid encryption key: must be 32 bytes")
	ErrDecryptionFailure = errors.New("decryption failed")
)

// Engine encrypts and decrypts opaque payloads with a fixed AES-256 key.
type Engine struct {
	key   []byte
	block cipher.Block
}

// New creates an Engine for the given 32 byte key. The key is copied.
func New(key []byte) (*Engine, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	keyCopy := make([]byte, KeySize)
	copy(keyCopy, key)

	block, err := aes.NewCipher(keyCopy)
	if err != nil {
		return nil, err
	}

	return &Engine{key: keyCopy, block: block}, nil
}

// Encrypt pads plaintext with PKCS#7 and encrypts it in CBC mode under a fresh random IV.
func (e *Engine) Encrypt(plaintext []byte) (iv, ciphertext []byte, err error) {
	iv = make([]byte, IVSize)
	if _, err = io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, err
	}

	padded := pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(e.block, iv).CryptBlocks(ciphertext, padded)

	return iv, ciphertext, nil
}

// Decrypt reverses Encrypt. It fails with ErrDecryptionFailure when the IV has the wrong
// size, the ciphertext is not a positive multiple of the block size or the padding is invalid.
func (e *Engine) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, errors.Join(ErrDecryptionFailure, errors.New("iv must be 16 bytes"))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.Join(ErrDecryptionFailure, errors.New("ciphertext is not a multiple of the block size"))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(e.block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, ok := unpad(plaintext, aes.BlockSize)
	if !ok {
		return nil, errors.Join(ErrDecryptionFailure, errors.New("invalid padding"))
	}
	return unpadded, nil
}

// Clear zeros out the key material. The engine must not be used afterwards.
func (e *Engine) Clear() {
	for i := range e.key {
		e.key[i] = 0
	}
}

// --------------------------------------------------------------------------
// PKCS#7
// --------------------------------------------------------------------------

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}

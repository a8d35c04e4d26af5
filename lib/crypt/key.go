package crypt

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the AES-256 key size in bytes.
const KeySize = 32

// Names of the supported key derivations.
const (
	KDFLegacy = "legacy"
	KDFHKDF   = "hkdf"
)

// hkdfInfo binds derived keys to this file format.
var hkdfInfo = []byte("sdb store key v1")

// KeyDerivation turns a secret into KeySize bytes of key material.
type KeyDerivation func(secret []byte) ([]byte, error)

// DeriveKey returns the first 32 characters of base64(SHA-256(secret)) as key bytes.
// The result is a deterministic function of the secret.
func DeriveKey(secret []byte) []byte {
	digest := sha256.Sum256(secret)
	encoded := base64.StdEncoding.EncodeToString(digest[:])
	return []byte(encoded[:KeySize])
}

// DeriveKeyHKDF derives a full-entropy key from the secret using HKDF-SHA256.
func DeriveKeyHKDF(secret []byte) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, hkdfInfo), key); err != nil {
		return nil, err
	}
	return key, nil
}

// KeyFunc resolves a key derivation by name. An empty name selects the legacy derivation.
func KeyFunc(name string) (KeyDerivation, error) {
	switch name {
	case "", KDFLegacy:
		return func(secret []byte) ([]byte, error) { return DeriveKey(secret), nil }, nil
	case KDFHKDF:
		return DeriveKeyHKDF, nil
	default:
		return nil, fmt.Errorf("unknown key derivation %q (expected %s or %s)", name, KDFLegacy, KDFHKDF)
	}
}

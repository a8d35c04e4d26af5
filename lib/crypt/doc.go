// Package crypt implements the symmetric encryption used for sDB store files.
//
// The package focuses on:
//   - Deriving a 256-bit key from an arbitrary secret
//   - AES-256-CBC encryption with PKCS#7 padding and a fresh random IV per call
//   - Mapping every structural decryption problem to ErrDecryptionFailure
//
// Key Derivation:
//
//	Two derivations are available and selected by name through KeyFunc:
//
//	- "legacy" (default): the first 32 characters of base64(SHA-256(secret)) are used
//	  as raw key bytes. This is the derivation every existing .sdb file was written
//	  with. It is NOT a proper KDF: the key only carries 32 base64 characters (192 bits)
//	  of the digest and no salt or work factor is applied.
//
//	- "hkdf": HKDF-SHA256 over the secret with a fixed info string. Stores written with
//	  this derivation can only be opened with it.
//
// Integrity:
//
//	CBC provides confidentiality only. A modified ciphertext is detected only when the
//	padding becomes invalid, otherwise it decrypts to garbage which the caller has to
//	reject while parsing the plaintext.
//
// Usage:
//
//	engine, err := crypt.New(crypt.DeriveKey([]byte("secret")))
//	iv, ct, err := engine.Encrypt(plaintext)
//	pt, err := engine.Decrypt(ct, iv)
package crypt

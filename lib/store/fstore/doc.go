// Package fstore implements the file-backed sDB document store based on the
// store.IStore interface. The complete document tree lives in memory; the file on
// disk is a derived encoding that is rewritten in full on every mutation.
//
// Key Features:
//   - Whole-tree persistence: Set and Delete serialize, encrypt and rewrite the file
//     before they return (write to a temporary file, fsync, rename)
//   - Encrypted container: BSON plaintext, AES-256-CBC with a fresh IV per write,
//     hex/BSON container with a format signature
//   - Structural queries: Find matches documents against a pattern document
//   - Snapshot reads: Get, All and Find never expose internal state
//   - Single writer: an advisory file lock (github.com/gofrs/flock) plus an in-process
//     registry of open paths prevent two stores from writing the same file
//
// Implementation Details:
//
//   - Load Protocol: read file → decode container → compare signature
//     (ErrSignatureMismatch) → decrypt (ErrDecryptionFailure) → deserialize
//     (ErrMalformedDocumentData) → check the tree shape → adopt. Open fails and
//     returns no store if any step fails.
//
//   - Value Normalisation: documents passed to Set are normalised to the canonical
//     value set before the tree is modified (see the internal package). A document
//     that cannot be stored is rejected with ErrInvalidDocument and leaves the tree
//     untouched.
//
//   - Write Failures: if persisting fails the in-memory tree already holds the change.
//     The error is returned to the caller of Set/Delete and the change becomes durable
//     with the next successful write. This is a known limitation of the format.
//
// Thread Safety:
//
//	All operations are serialised by a read/write mutex, so a store may be shared
//	between goroutines. This does not make multiple processes safe; the file lock
//	rejects a second writer instead.
//
// Usage Example:
//
//	s, err := fstore.Open(common.DefaultStoreConfig("db", []byte("secret")))
//	if err != nil { ... }
//	defer s.Close()
//
//	err = s.Set("users", "1", store.Document{"name": "Alice", "subs": 10})
//	doc, err := s.Get("users", "1")
//	ids, err := s.Find("users", store.Document{"subs": 10})
//
// Security Notes:
//
//	The legacy key derivation is weak and CBC carries no integrity tag; see the crypt
//	package. A tampered file is usually rejected while decoding, but that is not
//	guaranteed.
package fstore

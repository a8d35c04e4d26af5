// Package store provides the interface of the sDB embedded document store together
// with its unified error reporting.
//
// The package focuses on:
//   - A unified interface (IStore) for collection/document CRUD and structural queries
//   - Typed errors with return codes so callers can react to specific failures
//
// Key Components:
//
//   - IStore Interface: The core abstraction. A store is a mapping from collection name
//     to collection, a collection is a mapping from document id to document and a
//     document is a schema-less field mapping. Collections are created by the first
//     Set and removed together with their last document.
//
//   - Error System: Every failure is reported as *Error with a RetCode. The sentinel
//     values (ErrCollectionNotFound, ErrSignatureMismatch, ...) compare by code, so
//
//     if errors.Is(err, store.ErrDocumentNotFound) { ... }
//
//     works regardless of the message or the wrapped cause.
//
// Implementations:
//
//	- File Store (fstore): keeps the whole tree in memory and rewrites one encrypted
//	  file on every mutation. Available in the "github.com/ValentinKolb/sDB/lib/store/fstore"
//	  package.
//
// The testing package (github.com/ValentinKolb/sDB/lib/store/testing) provides a
// conformance suite every IStore implementation should pass.
package store

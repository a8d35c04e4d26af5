package store

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/sDB/lib/util"
)

// --------------------------------------------------------------------------
// Data Types
// --------------------------------------------------------------------------

// Document is a schema-less mapping from field name to value.
// Values are scalars (nil, bool, string, int64, float64, time.Time, []byte),
// nested mappings (map[string]any) or ordered sequences ([]any).
type Document = map[string]any

// Info holds metadata about a store. It is not guaranteed that all fields
// are filled in by every implementation.
type Info struct {
	Path          string           `json:"path"`
	Collections   int              `json:"collections"`
	Documents     int              `json:"documents"`
	FileSizeBytes int64            `json:"file_size_bytes"`
	Checksum      string           `json:"checksum"` // xxhash64 of the file content
	DocumentSizes util.SizeSummary `json:"document_sizes"`
	LastPersist   time.Time        `json:"last_persist"`
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the interface for interacting with a document store.
// Collection names and document ids must be non-empty strings.
// Every returned Document is a deep copy; modifying it never changes the store.
type IStore interface {
	// Exists reports whether the document id exists in the collection.
	// A missing collection is not an error.
	Exists(collection, id string) (exists bool, err error)
	// Set inserts the document or, if it exists, shallow merges fields into it:
	// top-level keys in fields overwrite, all other keys are preserved.
	// The collection is created if absent. The store is persisted before Set returns.
	Set(collection, id string, fields Document) (err error)
	// Get returns the document. It fails with ErrCollectionNotFound or ErrDocumentNotFound.
	Get(collection, id string) (doc Document, err error)
	// All returns a snapshot of every document of the collection keyed by id.
	// A missing collection yields an empty map.
	All(collection string) (docs map[string]Document, err error)
	// Delete removes the document and the collection once it is empty.
	// It fails with ErrCollectionNotFound or ErrDocumentNotFound.
	// The store is persisted before Delete returns.
	Delete(collection, id string) (err error)
	// Find returns the sorted ids of all documents in the collection that structurally match pattern.
	// A missing collection yields no ids.
	Find(collection string, pattern Document) (ids []string, err error)
	// Collections returns the sorted names of all collections.
	Collections() (names []string, err error)
	// Info returns metadata about the store.
	Info() (info Info, err error)
	// Close releases all resources held by the store. Further calls fail with ErrStoreClosed.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and optionally the underlying cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The cause (may be nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("StoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the cause of the error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same code,
// so errors.Is(err, store.ErrDocumentNotFound) works for every message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new StoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new StoreError with the given code, message and cause.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// Sentinel errors for use with errors.Is
var (
	ErrInternalError         = NewError(RetCInternalError, "internal error")
	ErrInvalidArgument       = NewError(RetCInvalidArgument, "invalid argument")
	ErrInvalidDocument       = NewError(RetCInvalidDocument, "invalid document")
	ErrSignatureMismatch     = NewError(RetCSignatureMismatch, "signature does not match")
	ErrMalformedContainer    = NewError(RetCMalformedContainer, "malformed container")
	ErrDecryptionFailure     = NewError(RetCDecryptionFailure, "decryption failed")
	ErrMalformedDocumentData = NewError(RetCMalformedDocumentData, "malformed document data")
	ErrCollectionNotFound    = NewError(RetCCollectionNotFound, "collection not found")
	ErrDocumentNotFound      = NewError(RetCDocumentNotFound, "document not found")
	ErrStoreLocked           = NewError(RetCStoreLocked, "store is locked")
	ErrStoreClosed           = NewError(RetCStoreClosed, "store is closed")
	ErrIO                    = NewError(RetCIOError, "i/o error")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess               RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                        // 1: Operation failed due to an internal error.
	RetCInvalidArgument                      // 2: Empty collection name, empty id or invalid configuration.
	RetCInvalidDocument                      // 3: Document holds a value that cannot be stored.
	RetCSignatureMismatch                    // 4: File signature differs from the expected format magic.
	RetCMalformedContainer                   // 5: On-disk record could not be decoded.
	RetCDecryptionFailure                    // 6: Ciphertext length or padding invalid.
	RetCMalformedDocumentData                // 7: Decrypted bytes are not a valid document tree.
	RetCCollectionNotFound                   // 8: Collection does not exist.
	RetCDocumentNotFound                     // 9: Document does not exist in the collection.
	RetCStoreLocked                          // 10: Store file is already opened by another store.
	RetCStoreClosed                          // 11: Store was closed.
	RetCIOError                              // 12: Reading or writing the store file failed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidArgument:
		return "InvalidArgument"
	case RetCInvalidDocument:
		return "InvalidDocument"
	case RetCSignatureMismatch:
		return "SignatureMismatch"
	case RetCMalformedContainer:
		return "MalformedContainer"
	case RetCDecryptionFailure:
		return "DecryptionFailure"
	case RetCMalformedDocumentData:
		return "MalformedDocumentData"
	case RetCCollectionNotFound:
		return "CollectionNotFound"
	case RetCDocumentNotFound:
		return "DocumentNotFound"
	case RetCStoreLocked:
		return "StoreLocked"
	case RetCStoreClosed:
		return "StoreClosed"
	case RetCIOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

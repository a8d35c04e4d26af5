package serializer

import "errors"

// ErrMalformedDocumentData is returned (wrapped) when bytes cannot be decoded into a document tree.
var ErrMalformedDocumentData = errors.New("malformed document data")

// ErrUnsupportedValue is returned (wrapped) when a tree holds a value the serializer cannot write
// in a way that reads back unchanged.
var ErrUnsupportedValue = errors.New("value not supported by serializer")

// IDocSerializer is the interface for all document tree serializers
type IDocSerializer interface {
	// Serialize converts a document tree into a self-describing byte buffer.
	// Equal trees always produce equal bytes. It returns an error wrapping ErrUnsupportedValue
	// if the tree holds a value that would not survive a round trip.
	Serialize(doc map[string]any) ([]byte, error)
	// Deserialize converts a byte buffer back into a document tree.
	// Nested documents are returned as map[string]any and sequences as []any.
	// It returns an error wrapping ErrMalformedDocumentData if the input is truncated or inconsistent.
	Deserialize(b []byte) (map[string]any, error)
}

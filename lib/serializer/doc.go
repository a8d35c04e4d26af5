// Package serializer provides the document tree serialization used by sDB.
// It defines a common interface and two implementations for converting the
// schema-less document tree (maps of maps with scalar, mapping or sequence values)
// to and from bytes.
//
// Key Components:
//
//   - IDocSerializer: Core interface that all serializer implementations must satisfy.
//
//   - bsonSerializerImpl: BSON encoding (go.mongodb.org/mongo-driver/v2/bson). Every value
//     carries its own type tag, so no external schema is needed to decode. This is the
//     format of the plaintext inside every .sdb file. Maps are written with sorted keys so
//     the output is deterministic.
//
//   - jsonSerializerImpl: JSON encoding, useful for exporting and debugging. It is lossy
//     (binary values become base64 strings, timestamps become RFC 3339 strings and
//     integral floats come back as integers) and is never used for the store file.
//
// Decoded values are plain Go types:
//
//	nil, bool, string, int64, float64, time.Time, []byte, []any, map[string]any
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewBSONSerializer()
//	data, err := s.Serialize(tree)
//	tree, err = s.Deserialize(data)
package serializer

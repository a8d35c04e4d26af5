package container

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Field names of the record
const (
	fieldSignature = "signature"
	fieldIV        = "iv"
	fieldData      = "data"
)

// ErrMalformedContainer is returned (wrapped) when a file cannot be decoded into a Container.
var ErrMalformedContainer = errors.New("malformed container")

// Container is the decoded on-disk record.
type Container struct {
	Signature []byte
	IV        []byte
	Data      []byte
}

// Encode produces the file content for c.
func Encode(c Container) ([]byte, error) {
	raw, err := bson.Marshal(bson.D{
		{Key: fieldSignature, Value: hex.EncodeToString(c.Signature)},
		{Key: fieldIV, Value: hex.EncodeToString(c.IV)},
		{Key: fieldData, Value: hex.EncodeToString(c.Data)},
	})
	if err != nil {
		return nil, err
	}

	out := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(out, raw)
	return out, nil
}

// Decode parses file content produced by Encode. Surrounding whitespace is ignored.
func Decode(b []byte) (Container, error) {
	b = bytes.TrimSpace(b)

	raw := make([]byte, hex.DecodedLen(len(b)))
	if _, err := hex.Decode(raw, b); err != nil {
		return Container{}, fmt.Errorf("%w: outer hex: %v", ErrMalformedContainer, err)
	}

	var record bson.M
	if err := bson.Unmarshal(raw, &record); err != nil {
		return Container{}, fmt.Errorf("%w: record: %v", ErrMalformedContainer, err)
	}

	var (
		c   Container
		err error
	)
	if c.Signature, err = hexField(record, fieldSignature); err != nil {
		return Container{}, err
	}
	if c.IV, err = hexField(record, fieldIV); err != nil {
		return Container{}, err
	}
	if c.Data, err = hexField(record, fieldData); err != nil {
		return Container{}, err
	}
	return c, nil
}

// hexField reads a required hex string field from the record
func hexField(record bson.M, name string) ([]byte, error) {
	v, ok := record[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ErrMalformedContainer, name)
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is %T, expected string", ErrMalformedContainer, name, v)
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", ErrMalformedContainer, name, err)
	}
	return out, nil
}

package serializer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewBSONSerializer creates a new serializer using the BSON format
func NewBSONSerializer() IDocSerializer {
	return &bsonSerializerImpl{}
}

// bsonSerializerImpl implements IDocSerializer using BSON
type bsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IDocSerializer)
// --------------------------------------------------------------------------

func (s bsonSerializerImpl) Serialize(doc map[string]any) ([]byte, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	return bson.Marshal(toOrdered(doc))
}

func (s bsonSerializerImpl) Deserialize(data []byte) (map[string]any, error) {
	// The first 4 bytes hold the total document length (little endian, inclusive)
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: data too short for document header", ErrMalformedDocumentData)
	}
	if size := binary.LittleEndian.Uint32(data[:4]); int64(size) != int64(len(data)) {
		return nil, fmt.Errorf("%w: document length %d does not match data length %d", ErrMalformedDocumentData, size, len(data))
	}

	dec := bson.NewDecoder(bson.NewDocumentReader(bytes.NewReader(data)))
	dec.DefaultDocumentM()

	var m bson.M
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocumentData, err)
	}

	out, err := fromBSON(m)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// toOrdered converts maps into bson.D with sorted keys (recursively) so the
// encoding does not depend on Go's map iteration order.
func toOrdered(v any) any {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		d := make(bson.D, 0, len(keys))
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: toOrdered(x[k])})
		}
		return d
	case []any:
		a := make(bson.A, len(x))
		for i, e := range x {
			a[i] = toOrdered(e)
		}
		return a
	default:
		return v
	}
}

// fromBSON converts decoded bson values into plain Go values
func fromBSON(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x, nil
	case int32:
		return int64(x), nil
	case bson.M:
		return fromBSONMap(x)
	case map[string]any:
		return fromBSONMap(x)
	case bson.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			val, err := fromBSON(e.Value)
			if err != nil {
				return nil, err
			}
			m[e.Key] = val
		}
		return m, nil
	case bson.A:
		return fromBSONSlice(x)
	case []any:
		return fromBSONSlice(x)
	case bson.DateTime:
		return x.Time().UTC(), nil
	case time.Time:
		return x.UTC(), nil
	case bson.Binary:
		return append([]byte{}, x.Data...), nil
	case []byte:
		return append([]byte{}, x...), nil
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T", ErrMalformedDocumentData, v)
	}
}

func fromBSONMap(x map[string]any) (any, error) {
	m := make(map[string]any, len(x))
	for k, e := range x {
		val, err := fromBSON(e)
		if err != nil {
			return nil, err
		}
		m[k] = val
	}
	return m, nil
}

func fromBSONSlice(x []any) (any, error) {
	a := make([]any, len(x))
	for i, e := range x {
		val, err := fromBSON(e)
		if err != nil {
			return nil, err
		}
		a[i] = val
	}
	return a, nil
}

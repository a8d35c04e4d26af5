package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// NewJSONSerializer creates a new serializer using JSON.
//
// JSON has no binary, date or non-finite number types, so trees holding []byte,
// time.Time, NaN or ±Inf (or strings that are not valid UTF-8) are rejected.
// Integral floats are written with a fraction so they read back as float64.
func NewJSONSerializer() IDocSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements IDocSerializer using JSON
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IDocSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(doc map[string]any) ([]byte, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	v, err := toJSON(doc)
	if err != nil {
		return nil, err
	}
	// encoding/json writes map keys in sorted order
	return json.Marshal(v)
}

func (j jsonSerializerImpl) Deserialize(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocumentData, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: top level value is not an object", ErrMalformedDocumentData)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformedDocumentData)
	}

	return fromJSON(m).(map[string]any), nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// toJSON copies v into values encoding/json writes without loss
func toJSON(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, int64:
		return x, nil
	case string:
		if !utf8.ValidString(x) {
			return nil, fmt.Errorf("%w: string is not valid UTF-8", ErrUnsupportedValue)
		}
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, x)
		}
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return json.Number(s), nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			if !utf8.ValidString(k) {
				return nil, fmt.Errorf("%w: field name is not valid UTF-8", ErrUnsupportedValue)
			}
			c, err := toJSON(e)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			c, err := toJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// fromJSON replaces json.Number values with int64 (if integral) or float64
func fromJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = fromJSON(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = fromJSON(e)
		}
		return x
	default:
		return v
	}
}

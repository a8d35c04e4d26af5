package serializer

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IDocSerializer{
	"JSON": NewJSONSerializer,
	"BSON": NewBSONSerializer,
}

// testTrees creates a set of document trees that survive a round trip with every serializer
func testTrees() []map[string]any {
	return []map[string]any{
		// Empty store
		{},

		// One collection with one document
		{
			"users": map[string]any{
				"1": map[string]any{"name": "Alice", "subs": int64(10)},
			},
		},

		// Nested values, sequences and null
		{
			"youtubers": map[string]any{
				"a1": map[string]any{
					"rank":        int64(1),
					"subscribers": 281.5,
					"tags":        []any{"music", "india", int64(3)},
					"meta":        map[string]any{"verified": true, "country": nil},
				},
				"b2": map[string]any{
					"rank": int64(2),
					"meta": map[string]any{"nested": map[string]any{"deep": []any{map[string]any{"x": "y"}}}},
				},
			},
			"other": map[string]any{
				"x": map[string]any{"empty": map[string]any{}, "list": []any{}},
			},
		},
	}
}

// TestSerializerRoundTrip tests that trees can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	trees := testTrees()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, tree := range trees {
				data, err := serializer.Serialize(tree)
				if err != nil {
					t.Errorf("Failed to serialize tree %d: %v", i, err)
					continue
				}

				result, err := serializer.Deserialize(data)
				if err != nil {
					t.Errorf("Failed to deserialize tree %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(tree, result) {
					t.Errorf("Tree %d doesn't match after round trip:\nOriginal: %#v\nResult: %#v", i, tree, result)
				}
			}
		})
	}
}

// TestSerializerDeterministic tests that equal trees produce equal bytes
func TestSerializerDeterministic(t *testing.T) {
	tree := testTrees()[2]

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			first, err := serializer.Serialize(tree)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}
			for i := 0; i < 20; i++ {
				again, err := serializer.Serialize(tree)
				if err != nil {
					t.Fatalf("Failed to serialize: %v", err)
				}
				if !bytes.Equal(first, again) {
					t.Fatalf("Serialization %d differs from the first one", i)
				}
			}
		})
	}
}

// TestBSONTypes tests that BSON keeps the value types that JSON loses
func TestBSONTypes(t *testing.T) {
	ts := time.Date(2024, 5, 17, 12, 30, 0, 123000000, time.UTC)
	tree := map[string]any{
		"c": map[string]any{
			"d": map[string]any{
				"float": 2.0,
				"int":   int64(2),
				"big":   int64(1) << 40,
				"bytes": []byte{0, 1, 2, 255},
				"time":  ts,
			},
		},
	}

	s := NewBSONSerializer()
	data, err := s.Serialize(tree)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	result, err := s.Deserialize(data)
	if err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}

	doc := result["c"].(map[string]any)["d"].(map[string]any)
	if v, ok := doc["float"].(float64); !ok || v != 2.0 {
		t.Errorf("Expected float64 2.0, got %#v", doc["float"])
	}
	if v, ok := doc["int"].(int64); !ok || v != 2 {
		t.Errorf("Expected int64 2, got %#v", doc["int"])
	}
	if v, ok := doc["big"].(int64); !ok || v != int64(1)<<40 {
		t.Errorf("Expected int64 1<<40, got %#v", doc["big"])
	}
	if v, ok := doc["bytes"].([]byte); !ok || !bytes.Equal(v, []byte{0, 1, 2, 255}) {
		t.Errorf("Expected bytes, got %#v", doc["bytes"])
	}
	if v, ok := doc["time"].(time.Time); !ok || !v.Equal(ts) {
		t.Errorf("Expected time %v, got %#v", ts, doc["time"])
	}
}

// TestJSONUnsupportedValues tests that JSON rejects values it cannot read back unchanged
func TestJSONUnsupportedValues(t *testing.T) {
	s := NewJSONSerializer()

	cases := map[string]any{
		"bytes":       []byte{1, 2},
		"time":        time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC),
		"nan":         math.NaN(),
		"inf":         math.Inf(1),
		"invalidUTF8": "\xff\xfe",
		"nested":      []any{map[string]any{"b": []byte{1}}},
	}

	for name, value := range cases {
		tree := map[string]any{"c": map[string]any{"1": map[string]any{"v": value}}}
		if _, err := s.Serialize(tree); !errors.Is(err, ErrUnsupportedValue) {
			t.Errorf("%s: expected ErrUnsupportedValue, got %v", name, err)
		}
	}
}

// TestJSONKeepsFloats tests that integral floats read back as float64 and integers as int64
func TestJSONKeepsFloats(t *testing.T) {
	s := NewJSONSerializer()
	tree := map[string]any{
		"float":    2.0,
		"negative": -3.0,
		"big":      1e21,
		"int":      int64(2),
	}

	data, err := s.Serialize(tree)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	result, err := s.Deserialize(data)
	if err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	if !reflect.DeepEqual(tree, result) {
		t.Errorf("Tree doesn't match after round trip:\nOriginal: %#v\nResult: %#v", tree, result)
	}
}

// TestMalformedData tests that broken input is rejected with ErrMalformedDocumentData
func TestMalformedData(t *testing.T) {
	valid, err := NewBSONSerializer().Serialize(testTrees()[1])
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	cases := map[string]map[string][]byte{
		"BSON": {
			"empty":     {},
			"short":     {5, 0, 0},
			"truncated": valid[:len(valid)-3],
			"trailing":  append(append([]byte{}, valid...), 0, 0),
			"garbage":   bytes.Repeat([]byte{0x7f}, 64),
		},
		"JSON": {
			"empty":    {},
			"array":    []byte(`[1,2]`),
			"null":     []byte(`null`),
			"broken":   []byte(`{"a":`),
			"trailing": []byte(`{"a":1} {"b":2}`),
		},
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			for caseName, data := range cases[name] {
				if _, err := serializer.Deserialize(data); !errors.Is(err, ErrMalformedDocumentData) {
					t.Errorf("%s: expected ErrMalformedDocumentData, got %v", caseName, err)
				}
			}
		})
	}
}

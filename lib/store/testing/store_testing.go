package testing

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/sDB/lib/store"
)

// StoreFactory creates a new, empty instance of an IStore implementation.
// Every call must return a store backed by its own file.
type StoreFactory func(t testing.TB) store.IStore

// RunStoreTests runs the conformance test suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Scenario", func(t *testing.T) {
			testScenario(t, factory(t))
		})

		t.Run("Exists", func(t *testing.T) {
			testExists(t, factory(t))
		})

		t.Run("MergeOnSet", func(t *testing.T) {
			testMergeOnSet(t, factory(t))
		})

		t.Run("NotFound", func(t *testing.T) {
			testNotFound(t, factory(t))
		})

		t.Run("CollectionPruning", func(t *testing.T) {
			testCollectionPruning(t, factory(t))
		})

		t.Run("All", func(t *testing.T) {
			testAll(t, factory(t))
		})

		t.Run("SnapshotIsolation", func(t *testing.T) {
			testSnapshotIsolation(t, factory(t))
		})

		t.Run("FindScalar", func(t *testing.T) {
			testFindScalar(t, factory(t))
		})

		t.Run("FindSequence", func(t *testing.T) {
			testFindSequence(t, factory(t))
		})

		t.Run("FindNested", func(t *testing.T) {
			testFindNested(t, factory(t))
		})

		t.Run("ValueTypes", func(t *testing.T) {
			testValueTypes(t, factory(t))
		})

		t.Run("InvalidArguments", func(t *testing.T) {
			testInvalidArguments(t, factory(t))
		})

		t.Run("InvalidDocument", func(t *testing.T) {
			testInvalidDocument(t, factory(t))
		})

		t.Run("Collections", func(t *testing.T) {
			testCollections(t, factory(t))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory(t))
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory(t))
		})

		t.Run("Close", func(t *testing.T) {
			testClose(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustSet(t testing.TB, s store.IStore, collection, id string, doc store.Document) {
	t.Helper()
	if err := s.Set(collection, id, doc); err != nil {
		t.Fatalf("Unexpected error during Set(%s, %s): %v", collection, id, err)
	}
}

func mustGet(t testing.TB, s store.IStore, collection, id string) store.Document {
	t.Helper()
	doc, err := s.Get(collection, id)
	if err != nil {
		t.Fatalf("Unexpected error during Get(%s, %s): %v", collection, id, err)
	}
	return doc
}

func mustFind(t testing.TB, s store.IStore, collection string, pattern store.Document) []string {
	t.Helper()
	ids, err := s.Find(collection, pattern)
	if err != nil {
		t.Fatalf("Unexpected error during Find(%s, %v): %v", collection, pattern, err)
	}
	return ids
}

func expectDoc(t testing.TB, got, want store.Document) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected document %v, got %v", want, got)
	}
}

func expectIDs(t testing.TB, got []string, want ...string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected ids %v, got %v", want, got)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testScenario(t *testing.T, s store.IStore) {
	defer s.Close()

	mustSet(t, s, "u", "1", store.Document{"name": "Alice", "subs": 10})
	expectDoc(t, mustGet(t, s, "u", "1"), store.Document{"name": "Alice", "subs": int64(10)})

	mustSet(t, s, "u", "1", store.Document{"subs": 20})
	expectDoc(t, mustGet(t, s, "u", "1"), store.Document{"name": "Alice", "subs": int64(20)})

	if err := s.Delete("u", "1"); err != nil {
		t.Fatalf("Unexpected error during Delete: %v", err)
	}

	exists, err := s.Exists("u", "1")
	if err != nil {
		t.Fatalf("Unexpected error during Exists: %v", err)
	}
	if exists {
		t.Errorf("Expected document u/1 to be gone after Delete")
	}

	all, err := s.All("u")
	if err != nil {
		t.Fatalf("Unexpected error during All: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("Expected empty collection after Delete, got %v", all)
	}
}

func testExists(t *testing.T, s store.IStore) {
	defer s.Close()

	exists, err := s.Exists("missing", "1")
	if err != nil {
		t.Errorf("Exists on missing collection must not fail, got %v", err)
	}
	if exists {
		t.Errorf("Expected exists=false for missing collection")
	}

	mustSet(t, s, "c", "1", store.Document{})

	exists, _ = s.Exists("c", "1")
	if !exists {
		t.Errorf("Expected empty document c/1 to exist")
	}

	exists, _ = s.Exists("c", "2")
	if exists {
		t.Errorf("Expected exists=false for missing id in existing collection")
	}
}

func testMergeOnSet(t *testing.T, s store.IStore) {
	defer s.Close()

	mustSet(t, s, "c", "doc", store.Document{"a": 1, "b": 2})
	mustSet(t, s, "c", "doc", store.Document{"b": 3, "c": 4})
	expectDoc(t, mustGet(t, s, "c", "doc"), store.Document{"a": int64(1), "b": int64(3), "c": int64(4)})

	// the merge is shallow: a nested mapping is replaced, not merged
	mustSet(t, s, "c", "nested", store.Document{"m": map[string]any{"x": 1, "y": 2}})
	mustSet(t, s, "c", "nested", store.Document{"m": map[string]any{"z": 3}})
	expectDoc(t, mustGet(t, s, "c", "nested"), store.Document{"m": map[string]any{"z": int64(3)}})

	// nil is a value, not a removal
	mustSet(t, s, "c", "doc", store.Document{"a": nil})
	expectDoc(t, mustGet(t, s, "c", "doc"), store.Document{"a": nil, "b": int64(3), "c": int64(4)})
}

func testNotFound(t *testing.T, s store.IStore) {
	defer s.Close()

	if _, err := s.Get("missing", "1"); !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("Expected ErrCollectionNotFound from Get, got %v", err)
	}
	if err := s.Delete("missing", "1"); !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("Expected ErrCollectionNotFound from Delete, got %v", err)
	}

	mustSet(t, s, "c", "1", store.Document{"v": true})

	if _, err := s.Get("c", "2"); !errors.Is(err, store.ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound from Get, got %v", err)
	}
	if err := s.Delete("c", "2"); !errors.Is(err, store.ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound from Delete, got %v", err)
	}
}

func testCollectionPruning(t *testing.T, s store.IStore) {
	defer s.Close()

	mustSet(t, s, "c", "1", store.Document{"v": 1})
	mustSet(t, s, "c", "2", store.Document{"v": 2})

	if err := s.Delete("c", "1"); err != nil {
		t.Fatalf("Unexpected error during Delete: %v", err)
	}
	names, _ := s.Collections()
	expectIDs(t, names, "c")

	if err := s.Delete("c", "2"); err != nil {
		t.Fatalf("Unexpected error during Delete: %v", err)
	}
	names, _ = s.Collections()
	expectIDs(t, names)

	if _, err := s.Get("c", "2"); !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("Expected ErrCollectionNotFound after pruning, got %v", err)
	}
}

func testAll(t *testing.T, s store.IStore) {
	defer s.Close()

	all, err := s.All("missing")
	if err != nil {
		t.Fatalf("All on missing collection must not fail, got %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("Expected empty non-nil map for missing collection, got %v", all)
	}

	numDocs := 50
	for i := 0; i < numDocs; i++ {
		mustSet(t, s, "c", fmt.Sprintf("id-%d", i), store.Document{"i": i})
	}

	all, _ = s.All("c")
	if len(all) != numDocs {
		t.Fatalf("Expected %d documents, got %d", numDocs, len(all))
	}
	for i := 0; i < numDocs; i++ {
		expectDoc(t, all[fmt.Sprintf("id-%d", i)], store.Document{"i": int64(i)})
	}
}

func testSnapshotIsolation(t *testing.T, s store.IStore) {
	defer s.Close()

	input := store.Document{"tags": []any{"a"}, "m": map[string]any{"k": "v"}}
	mustSet(t, s, "c", "1", input)

	// mutating the input after Set must not change the store
	input["tags"].([]any)[0] = "changed"
	input["m"].(map[string]any)["k"] = "changed"

	doc := mustGet(t, s, "c", "1")
	doc["tags"].([]any)[0] = "x"
	doc["m"].(map[string]any)["k"] = "x"
	doc["new"] = 1

	all, _ := s.All("c")
	all["1"]["m"].(map[string]any)["k"] = "y"
	delete(all, "1")

	expectDoc(t, mustGet(t, s, "c", "1"), store.Document{"tags": []any{"a"}, "m": map[string]any{"k": "v"}})
}

func testFindScalar(t *testing.T, s store.IStore) {
	defer s.Close()

	mustSet(t, s, "c", "a", store.Document{"x": 1, "y": "foo"})
	mustSet(t, s, "c", "b", store.Document{"x": 2, "y": "foo"})
	mustSet(t, s, "c", "c", store.Document{"x": 1.0})
	mustSet(t, s, "c", "d", store.Document{"y": "foo"})
	mustSet(t, s, "c", "e", store.Document{"x": "1"})

	expectIDs(t, mustFind(t, s, "c", store.Document{"x": 1}), "a", "c")
	expectIDs(t, mustFind(t, s, "c", store.Document{"x": 1, "y": "foo"}), "a")
	expectIDs(t, mustFind(t, s, "c", store.Document{"y": "foo"}), "a", "b", "d")
	expectIDs(t, mustFind(t, s, "c", store.Document{}), "a", "b", "c", "d", "e")
	expectIDs(t, mustFind(t, s, "c", nil), "a", "b", "c", "d", "e")
	expectIDs(t, mustFind(t, s, "c", store.Document{"z": nil}))
	expectIDs(t, mustFind(t, s, "missing", store.Document{"x": 1}))
}

func testFindSequence(t *testing.T, s store.IStore) {
	defer s.Close()

	mustSet(t, s, "c", "1", store.Document{"tags": []any{"a", "b", "c"}})
	mustSet(t, s, "c", "2", store.Document{"tags": []string{"c", "d"}})
	mustSet(t, s, "c", "3", store.Document{"tags": "a"})

	expectIDs(t, mustFind(t, s, "c", store.Document{"tags": []any{"a", "c"}}), "1")
	expectIDs(t, mustFind(t, s, "c", store.Document{"tags": []any{"c", "a"}}), "1")
	expectIDs(t, mustFind(t, s, "c", store.Document{"tags": []any{"a", "d"}}))
	expectIDs(t, mustFind(t, s, "c", store.Document{"tags": []any{"c"}}), "1", "2")
	expectIDs(t, mustFind(t, s, "c", store.Document{"tags": []any{}}), "1", "2")
}

func testFindNested(t *testing.T, s store.IStore) {
	defer s.Close()

	mustSet(t, s, "c", "1", store.Document{"meta": map[string]any{"lang": "de", "score": 3}})
	mustSet(t, s, "c", "2", store.Document{"meta": map[string]any{"lang": "en"}})
	mustSet(t, s, "c", "3", store.Document{"meta": "de"})

	expectIDs(t, mustFind(t, s, "c", store.Document{"meta": map[string]any{"lang": "de"}}), "1")
	expectIDs(t, mustFind(t, s, "c", store.Document{"meta": map[string]any{}}), "1", "2")
	expectIDs(t, mustFind(t, s, "c", store.Document{"meta": map[string]any{"score": 3, "missing": 1}}))
}

func testValueTypes(t *testing.T, s store.IStore) {
	defer s.Close()

	ts := time.Date(2024, 5, 1, 12, 30, 0, 123000000, time.UTC)
	mustSet(t, s, "c", "1", store.Document{
		"nil":    nil,
		"bool":   true,
		"string": "text",
		"int":    int32(-7),
		"uint":   uint8(7),
		"float":  float32(1.5),
		"time":   ts,
		"bytes":  []byte{0, 1, 2},
		"list":   []int{1, 2},
		"map":    map[string]string{"k": "v"},
	})

	expectDoc(t, mustGet(t, s, "c", "1"), store.Document{
		"nil":    nil,
		"bool":   true,
		"string": "text",
		"int":    int64(-7),
		"uint":   int64(7),
		"float":  1.5,
		"time":   ts,
		"bytes":  []byte{0, 1, 2},
		"list":   []any{int64(1), int64(2)},
		"map":    map[string]any{"k": "v"},
	})
}

func testInvalidArguments(t *testing.T, s store.IStore) {
	defer s.Close()

	if _, err := s.Exists("", "1"); !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for empty collection, got %v", err)
	}
	if err := s.Set("c", "", store.Document{}); !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for empty id, got %v", err)
	}
	if _, err := s.Get("", ""); !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument from Get, got %v", err)
	}
	if _, err := s.All(""); !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument from All, got %v", err)
	}
	if _, err := s.Find("", nil); !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument from Find, got %v", err)
	}
	if err := s.Delete("c", ""); !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument from Delete, got %v", err)
	}

	// names with NUL bytes cannot be written to disk
	if err := s.Set("bad\x00name", "1", store.Document{"a": 1}); !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for NUL in collection, got %v", err)
	}
	if err := s.Set("c", "bad\x00id", store.Document{"a": 1}); !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for NUL in id, got %v", err)
	}

	// the store stays writable after rejected calls
	mustSet(t, s, "c", "1", store.Document{"a": 1})
	expectDoc(t, mustGet(t, s, "c", "1"), store.Document{"a": int64(1)})
}

func testInvalidDocument(t *testing.T, s store.IStore) {
	defer s.Close()

	mustSet(t, s, "c", "1", store.Document{"a": 1})

	if err := s.Set("c", "1", store.Document{"b": 2, "f": func() {}}); !errors.Is(err, store.ErrInvalidDocument) {
		t.Errorf("Expected ErrInvalidDocument, got %v", err)
	}
	if err := s.Set("c", "2", store.Document{"ch": make(chan int)}); !errors.Is(err, store.ErrInvalidDocument) {
		t.Errorf("Expected ErrInvalidDocument, got %v", err)
	}

	// a rejected document leaves the tree untouched
	expectDoc(t, mustGet(t, s, "c", "1"), store.Document{"a": int64(1)})
	if exists, _ := s.Exists("c", "2"); exists {
		t.Errorf("Expected rejected document c/2 not to exist")
	}
}

func testCollections(t *testing.T, s store.IStore) {
	defer s.Close()

	names, err := s.Collections()
	if err != nil {
		t.Fatalf("Unexpected error during Collections: %v", err)
	}
	expectIDs(t, names)

	mustSet(t, s, "zeta", "1", store.Document{})
	mustSet(t, s, "alpha", "1", store.Document{})
	mustSet(t, s, "mid", "1", store.Document{})

	names, _ = s.Collections()
	expectIDs(t, names, "alpha", "mid", "zeta")
}

func testInfo(t *testing.T, s store.IStore) {
	defer s.Close()

	mustSet(t, s, "a", "1", store.Document{"v": "x"})
	mustSet(t, s, "a", "2", store.Document{"v": "y"})
	mustSet(t, s, "b", "1", store.Document{"v": "z"})

	info, err := s.Info()
	if err != nil {
		t.Fatalf("Unexpected error during Info: %v", err)
	}
	if info.Collections != 2 {
		t.Errorf("Expected 2 collections, got %d", info.Collections)
	}
	if info.Documents != 3 {
		t.Errorf("Expected 3 documents, got %d", info.Documents)
	}
	if info.DocumentSizes.Count != 3 {
		t.Errorf("Expected 3 document size samples, got %d", info.DocumentSizes.Count)
	}
}

func testConcurrent(t *testing.T, s store.IStore) {
	defer s.Close()

	numWorkers := 8
	numOps := 20

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < numOps; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if err := s.Set("c", id, store.Document{"worker": w, "i": i}); err != nil {
					t.Errorf("Unexpected error during concurrent Set: %v", err)
					return
				}
				if _, err := s.Get("c", id); err != nil {
					t.Errorf("Unexpected error during concurrent Get: %v", err)
					return
				}
				if _, err := s.Find("c", store.Document{"worker": w}); err != nil {
					t.Errorf("Unexpected error during concurrent Find: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	all, _ := s.All("c")
	if len(all) != numWorkers*numOps {
		t.Errorf("Expected %d documents, got %d", numWorkers*numOps, len(all))
	}
	expectIDs(t, mustFind(t, s, "c", store.Document{"worker": 0, "i": 3}), "w0-3")
}

func testClose(t *testing.T, s store.IStore) {
	mustSet(t, s, "c", "1", store.Document{})

	if err := s.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}

	if _, err := s.Exists("c", "1"); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed from Exists, got %v", err)
	}
	if err := s.Set("c", "1", store.Document{}); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed from Set, got %v", err)
	}
	if _, err := s.Collections(); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed from Collections, got %v", err)
	}
	if err := s.Close(); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed from second Close, got %v", err)
	}
}

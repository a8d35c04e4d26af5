package testing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ValentinKolb/sDB/lib/store"
)

// RunStoreBenchmarks runs all benchmarks for a store implementation
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory(b))
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory(b))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(b))
		})

		b.Run("Find", func(b *testing.B) {
			benchmarkFind(b, factory(b))
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory(b))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// benchDocument returns a small document resembling a scraped entry
func benchDocument(i int) store.Document {
	return store.Document{
		"title": fmt.Sprintf("entry %d", i),
		"score": i % 10,
		"tags":  []any{"bench", fmt.Sprintf("tag-%d", i%5)},
		"meta":  map[string]any{"source": "bench", "rank": i},
	}
}

// fill inserts n documents into collection "bench"
func fill(b *testing.B, s store.IStore, n int) {
	b.Helper()
	for i := 0; i < n; i++ {
		if err := s.Set("bench", fmt.Sprintf("doc-%d", i), benchDocument(i)); err != nil {
			b.Fatalf("Unexpected error during Set: %v", err)
		}
	}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Set operation (every call rewrites the whole file)
func benchmarkSet(b *testing.B, s store.IStore) {
	b.Cleanup(func() {
		s.Close()
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Set("bench", fmt.Sprintf("doc-%d", i%100), benchDocument(i)); err != nil {
			b.Fatalf("Unexpected error during Set: %v", err)
		}
	}
}

// Benchmark for merging into an existing document
func benchmarkSetExisting(b *testing.B, s store.IStore) {
	b.Cleanup(func() {
		s.Close()
	})

	fill(b, s, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Set("bench", fmt.Sprintf("doc-%d", i%100), store.Document{"score": i}); err != nil {
			b.Fatalf("Unexpected error during Set: %v", err)
		}
	}
}

// Benchmark for Get operation
func benchmarkGet(b *testing.B, s store.IStore) {
	b.Cleanup(func() {
		s.Close()
	})

	numDocs := 1000
	fill(b, s, numDocs)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			if _, err := s.Get("bench", fmt.Sprintf("doc-%d", r.Intn(numDocs))); err != nil {
				b.Errorf("Unexpected error during Get: %v", err)
				return
			}
		}
	})
}

// Benchmark for Find with a mixed scalar, sequence and mapping pattern
func benchmarkFind(b *testing.B, s store.IStore) {
	b.Cleanup(func() {
		s.Close()
	})

	fill(b, s, 1000)
	pattern := store.Document{
		"score": 3,
		"tags":  []any{"tag-3"},
		"meta":  map[string]any{"source": "bench"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Find("bench", pattern); err != nil {
			b.Fatalf("Unexpected error during Find: %v", err)
		}
	}
}

// Benchmark with 90% reads and 10% writes
func benchmarkMixedUsage(b *testing.B, s store.IStore) {
	b.Cleanup(func() {
		s.Close()
	})

	numDocs := 200
	fill(b, s, numDocs)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("doc-%d", i%numDocs)
		var err error
		switch i % 10 {
		case 0:
			err = s.Set("bench", id, store.Document{"score": i})
		case 1:
			_, err = s.Find("bench", store.Document{"score": 1})
		default:
			_, err = s.Get("bench", id)
		}
		if err != nil {
			b.Fatalf("Unexpected error in mixed usage: %v", err)
		}
	}
}

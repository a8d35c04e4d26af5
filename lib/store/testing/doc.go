// Package testing provides standardised tests and benchmarks for
// store implementations that satisfy the store.IStore interface.
//
// The package contains:
//   - testing: A test suite validating conformance to the IStore contract
//     (merge-on-set, collection pruning, structural matching, snapshot isolation)
//   - benchmark: Performance tests for the common store operations
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(t testing.TB) store.IStore {
//		s, err := mystore.Open(t.TempDir())
//		if err != nil {
//			t.Fatal(err)
//		}
//		return s
//	}
//
//	// Running the standard test suite
//	storetesting.RunStoreTests(t, "MyStore", factory)
//
//	// Running performance benchmarks
//	storetesting.RunStoreBenchmarks(b, "MyStore", factory)
package testing

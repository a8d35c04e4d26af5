package doc

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/sDB/cmd/util"
	"github.com/ValentinKolb/sDB/lib/common"
	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/ValentinKolb/sDB/lib/store/fstore"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for sDB stores",
		Long: `Performance testing tool for sDB stores.
The benchmarks run against a temporary store that is removed afterwards,
the store selected by --dir is never touched.`,
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfCollection       = "__perf"
	perfLargeValueSizeKB = 64
	perfNumThreads       = 4
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
	perfStore            store.IStore
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 4, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different documents to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfConfig returns the configuration of the temporary benchmark store
func perfConfig(dir string) (common.StoreConfig, error) {
	s, err := util.GetSerializer()
	if err != nil {
		return common.StoreConfig{}, err
	}
	config := common.DefaultStoreConfig(dir, []byte("perf"))
	config.KDF = viper.GetString("kdf")
	config.Serializer = s
	return config.WithDefaults(), nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for sDB stores")

	dir, err := os.MkdirTemp("", "sdb-perf-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	config, err := perfConfig(dir)
	if err != nil {
		return err
	}

	perfStore, err = fstore.Open(config)
	if err != nil {
		return err
	}
	defer perfStore.Close()

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	setResult := runBenchmark("set", func(b *testing.B) {
		if shouldSkip("set") {
			return
		}

		// prepare ids
		getID, iter := getIDs("set")

		// cleanup
		b.Cleanup(func() {
			iter(deleteDocument("set"))
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				err := perfStore.Set(perfCollection, getID(counter), perfDocument(counter))
				if err != nil {
					log.Printf("(set) - error setting document: %v\n", err)
				}
				counter++
			}
		})
	})

	results["set"] = setResult
	printResult("set", setResult)

	setLargeValueResult := runBenchmark("set-large", func(b *testing.B) {
		if shouldSkip("set-large") {
			return
		}

		// prepare large value
		largeValue := make([]byte, perfLargeValueSizeKB*1024)

		// prepare ids
		getID, iter := getIDs("set-large")

		// cleanup
		b.Cleanup(func() {
			iter(deleteDocument("set-large"))
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			err := perfStore.Set(perfCollection, getID(i), store.Document{"payload": largeValue})
			if err != nil {
				log.Printf("(set-large) - error setting document: %v\n", err)
			}
		}
	})

	results["set-large"] = setLargeValueResult
	printResult("set-large", setLargeValueResult)

	getResult := runBenchmark("get", func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare documents
		getID, iter := getIDs("get")
		iter(setDocument("get"))

		// cleanup
		b.Cleanup(func() {
			iter(deleteDocument("get"))
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				_, err := perfStore.Get(perfCollection, getID(counter))
				if err != nil {
					log.Printf("(get) - error getting document: %v\n", err)
				}
				counter++
			}
		})
	})

	results["get"] = getResult
	printResult("get", getResult)

	findResult := runBenchmark("find", func(b *testing.B) {
		if shouldSkip("find") {
			return
		}

		// prepare documents
		_, iter := getIDs("find")
		iter(setDocument("find"))

		// cleanup
		b.Cleanup(func() {
			iter(deleteDocument("find"))
		})

		pattern := store.Document{"tags": []any{"perf"}, "meta": map[string]any{"bucket": 3}}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				_, err := perfStore.Find(perfCollection, pattern)
				if err != nil {
					log.Printf("(find) - error finding documents: %v\n", err)
				}
			}
		})
	})

	results["find"] = findResult
	printResult("find", findResult)

	deleteResult := runBenchmark("delete", func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		// delete and re-insert, since every deleted document is gone for good
		getID, iter := getIDs("delete")
		iter(setDocument("delete"))

		b.Cleanup(func() {
			iter(deleteDocument("delete"))
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			id := getID(i)
			if err := perfStore.Delete(perfCollection, id); err != nil {
				log.Printf("(delete) - error deleting document: %v\n", err)
			}
			b.StopTimer()
			if err := perfStore.Set(perfCollection, id, perfDocument(i)); err != nil {
				log.Printf("(delete) - error setting document: %v\n", err)
			}
			b.StartTimer()
		}
	})

	results["delete"] = deleteResult
	printResult("delete", deleteResult)

	mixedUsageResult := runBenchmark("mixed", func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare documents
		getID, iter := getIDs("mixed")
		iter(setDocument("mixed"))

		// cleanup
		b.Cleanup(func() {
			iter(deleteDocument("mixed"))
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				id := getID(counter)
				var err error
				switch counter % 4 {
				case 0: // set
					err = perfStore.Set(perfCollection, id, store.Document{"counter": counter})
				case 1: // get
					_, err = perfStore.Get(perfCollection, id)
				case 2: // exists
					_, err = perfStore.Exists(perfCollection, id)
				case 3: // find
					_, err = perfStore.Find(perfCollection, store.Document{"counter": counter})
				}

				if err != nil {
					log.Printf("(mixed) - error performing operation (%d): %v\n", counter%4, err)
				}
				counter++
			}
		})
	})

	results["mixed"] = mixedUsageResult
	printResult("mixed", mixedUsageResult)

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println(util.Success("export complete"))
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark runs fn with testing.Benchmark and shows a spinner meanwhile
func runBenchmark(test string, fn func(b *testing.B)) testing.BenchmarkResult {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " running " + test + "..."
	s.Start()
	defer s.Stop()

	return testing.Benchmark(fn)
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of document ids and functions to work with them
func getIDs(prefix string) (func(int) string, func(func(int, string))) {
	ids := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		ids[i] = fmt.Sprintf("%s-%d", prefix, i)
	}

	// Function to get an id by index (with wraparound)
	getID := func(i int) string {
		return ids[i%perfKeySpread]
	}

	// Function to iterate over all ids and apply a function to each
	iterateIDs := func(fn func(int, string)) {
		for i, id := range ids {
			fn(i, id)
		}
	}

	return getID, iterateIDs
}

// perfDocument returns a small document resembling a scraped entry
func perfDocument(i int) store.Document {
	return store.Document{
		"title":   fmt.Sprintf("entry %d", i),
		"counter": i,
		"tags":    []any{"perf", fmt.Sprintf("tag-%d", i%7)},
		"meta":    map[string]any{"bucket": i % 10, "seen": time.Now()},
	}
}

func setDocument(test string) func(int, string) {
	return func(i int, id string) {
		if err := perfStore.Set(perfCollection, id, perfDocument(i)); err != nil {
			log.Printf("(%s) - error setting document: %v\n", test, err)
		}
	}
}

func deleteDocument(test string) func(int, string) {
	return func(_ int, id string) {
		exists, err := perfStore.Exists(perfCollection, id)
		if err == nil && exists {
			err = perfStore.Delete(perfCollection, id)
		}
		if err != nil {
			log.Printf("(%s) - error deleting document: %v\n", test, err)
		}
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config common.StoreConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"KDF", "Serializer", "Threads", "LargeValueSizeKB", "Documents",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.KDF,
			viper.GetString("serializer"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}

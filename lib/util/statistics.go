package util

import (
	"math"
	"sync"
)

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// SizeHistogram tracks the distribution of data sizes.
// It organizes sizes into exponential buckets (16B up to 64MB plus one overflow bucket).
type SizeHistogram struct {
	mutex      sync.RWMutex
	boundaries []int   // Upper bucket boundaries
	buckets    []int64 // Count of items in each bucket
	count      int64   // Total number of samples
	sum        int64   // Sum of all sampled sizes
	max        int     // Largest sample
}

// SizeSummary is a point-in-time summary of a SizeHistogram
type SizeSummary struct {
	Count   int64 `json:"count"`
	Total   int64 `json:"total_bytes"`
	Average int   `json:"average_bytes"`
	P50     int   `json:"p50_bytes"`
	P95     int   `json:"p95_bytes"`
	Max     int   `json:"max_bytes"`
}

// NewSizeHistogram creates a new size histogram with default bucket boundaries
func NewSizeHistogram() *SizeHistogram {
	boundaries := []int{
		16, 64, 256, 1024, 4096, // Bytes: 16B to 4KB
		16384, 65536, 262144, 1048576, // KB range: 16KB to 1MB
		4194304, 16777216, 67108864, // MB range: 4MB to 64MB
	}
	return &SizeHistogram{
		boundaries: boundaries,
		buckets:    make([]int64, len(boundaries)+1), // +1 for larger values
	}
}

// AddSample adds a size sample to the histogram
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) AddSample(size int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	bucketIndex := len(h.boundaries)
	for i, boundary := range h.boundaries {
		if size <= boundary {
			bucketIndex = i
			break
		}
	}

	h.buckets[bucketIndex]++
	h.count++
	h.sum += int64(size)
	if size > h.max {
		h.max = size
	}
}

// Count returns the total number of samples
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) Count() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.count
}

// AverageSize returns the average size across all samples
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) AverageSize() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.average()
}

// PercentileEstimate returns an estimate for the given percentile (0-100)
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) PercentileEstimate(percentile int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.percentile(percentile)
}

// Summary returns count, total, average, median, p95 and max in one consistent snapshot
//
// Thread-safe: This method is safe for concurrent use
func (h *SizeHistogram) Summary() SizeSummary {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return SizeSummary{
		Count:   h.count,
		Total:   h.sum,
		Average: h.average(),
		P50:     h.percentile(50),
		P95:     h.percentile(95),
		Max:     h.max,
	}
}

// average expects the caller to hold the lock
func (h *SizeHistogram) average() int {
	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// percentile expects the caller to hold the lock.
// The estimate is the midpoint of the bucket holding the percentile, capped at the largest sample.
func (h *SizeHistogram) percentile(percentile int) int {
	if h.count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	targetCount := int64(math.Ceil(float64(h.count) * float64(percentile) / 100.0))
	if targetCount == 0 {
		targetCount = 1
	}

	var cumulativeCount int64
	for i, count := range h.buckets {
		cumulativeCount += count
		if cumulativeCount < targetCount {
			continue
		}

		var estimate int
		switch {
		case i == 0:
			estimate = h.boundaries[0] / 2
		case i < len(h.boundaries):
			estimate = (h.boundaries[i-1] + h.boundaries[i]) / 2
		default:
			estimate = h.boundaries[len(h.boundaries)-1] * 2
		}
		return min(estimate, h.max)
	}

	return h.average()
}

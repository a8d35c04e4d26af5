// Package util provides small statistics helpers for sDB.
//
// SizeHistogram tracks the distribution of serialized document sizes with
// exponential buckets so store info can report averages and percentile
// estimates without keeping every sample.
package util

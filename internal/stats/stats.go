// Package stats computes distribution statistics (mean, standard
// deviation, and a fixed set of percentiles) over a latency sample.
//
// Grounded on the teacher's internal/util/math.go CalculatePercentiles
// and Stats helpers, extended with a quickselect path for samples
// larger than fullSortThreshold, since the teacher's always-sort
// implementation degrades on the multi-million-sample runs a
// thousand-terminal benchmark produces.
package stats

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// fullSortThreshold is the sample size below which a full sort is
// cheap enough that quickselect's added complexity isn't worth it.
const fullSortThreshold = 10_000

// percentileSpecs are the fractions the spec requires: min, quartiles,
// median, p90, p95, p99, max.
var percentileSpecs = [...]float64{0, 0.25, 0.5, 0.75, 0.90, 0.95, 0.99, 1.0}

// sentinelEmpty is returned for every percentile field when the input
// sample is empty.
const sentinelEmpty = -1

// Result is an immutable record of a sample's distribution
// statistics. All percentile fields and Min/Max are in the same unit
// as the input (nanoseconds, by convention in this engine).
type Result struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    int64
	Max    int64
	P0     int64
	P25    int64
	P50    int64
	P75    int64
	P90    int64
	P95    int64
	P99    int64
	P100   int64
}

// Compute computes Result over data. The contract matches the
// original: data MAY be reordered by this call (full sort for small
// samples, in-place partitioning for large ones) — callers that need
// the original order preserved must copy before calling. logger may
// be nil; if non-nil, a warning is emitted for an empty sample.
func Compute(data []int64, logger *zap.Logger) Result {
	n := len(data)
	if n == 0 {
		if logger != nil {
			logger.Warn("distribution statistics computed over an empty sample")
		}
		return Result{
			Count: 0,
			P0:    sentinelEmpty, P25: sentinelEmpty, P50: sentinelEmpty, P75: sentinelEmpty,
			P90: sentinelEmpty, P95: sentinelEmpty, P99: sentinelEmpty, P100: sentinelEmpty,
		}
	}

	var sum float64
	min, max := data[0], data[0]
	for _, v := range data {
		sum += float64(v)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(n)

	var sumSq float64
	for _, v := range data {
		d := float64(v) - mean
		sumSq += d * d
	}
	var stddev float64
	if n > 1 {
		stddev = math.Sqrt(sumSq / float64(n-1))
	}

	pct := computePercentiles(data, n, min, max)

	return Result{
		Count: n, Mean: mean, StdDev: stddev, Min: min, Max: max,
		P0: pct[0], P25: pct[1], P50: pct[2], P75: pct[3],
		P90: pct[4], P95: pct[5], P99: pct[6], P100: pct[7],
	}
}

// computePercentiles returns one value per entry of percentileSpecs,
// index at floor(p*n) clamped to n-1 on the sorted order, following
// the full-sort path for n <= fullSortThreshold and independent
// randomized quickselects otherwise.
func computePercentiles(data []int64, n int, min, max int64) [len(percentileSpecs)]int64 {
	var out [len(percentileSpecs)]int64

	if n <= fullSortThreshold {
		sort.Slice(data, func(i, j int) bool { return data[i] < data[j] })
		for i, p := range percentileSpecs {
			out[i] = data[clampIndex(p, n)]
		}
		return out
	}

	rng := rand.New(rand.NewSource(rand.Int63()))
	for i, p := range percentileSpecs {
		switch p {
		case 0:
			out[i] = min
		case 1.0:
			out[i] = max
		default:
			out[i] = quickselect(data, clampIndex(p, n), rng)
		}
	}
	return out
}

func clampIndex(p float64, n int) int {
	idx := int(p * float64(n))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// quickselect returns the k-th smallest element (0-indexed) of data,
// partitioning data in place with a randomized pivot. Each call
// operates over the full [0, len(data)) range independently; the
// buffer's order after one call is not relied upon by the next.
func quickselect(data []int64, k int, rng *rand.Rand) int64 {
	lo, hi := 0, len(data)-1
	for lo < hi {
		pivotIdx := lo + rng.Intn(hi-lo+1)
		pivotIdx = partition(data, lo, hi, pivotIdx)
		switch {
		case k == pivotIdx:
			return data[k]
		case k < pivotIdx:
			hi = pivotIdx - 1
		default:
			lo = pivotIdx + 1
		}
	}
	return data[lo]
}

// partition performs a Lomuto partition around data[pivotIdx] within
// [lo, hi] and returns the pivot's final resting index.
func partition(data []int64, lo, hi, pivotIdx int) int {
	pivot := data[pivotIdx]
	data[pivotIdx], data[hi] = data[hi], data[pivotIdx]
	store := lo
	for i := lo; i < hi; i++ {
		if data[i] < pivot {
			data[i], data[store] = data[store], data[i]
			store++
		}
	}
	data[store], data[hi] = data[hi], data[store]
	return store
}

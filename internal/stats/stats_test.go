package stats

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

func TestComputeEmpty(t *testing.T) {
	r := Compute(nil, nil)
	if r.Count != 0 {
		t.Fatalf("count = %d, want 0", r.Count)
	}
	for _, v := range []int64{r.P0, r.P25, r.P50, r.P75, r.P90, r.P95, r.P99, r.P100} {
		if v != -1 {
			t.Fatalf("sentinel percentile = %d, want -1", v)
		}
	}
}

func TestComputeSeedScenario(t *testing.T) {
	data := []int64{100, 200, 300, 400, 500}
	r := Compute(data, nil)

	if r.Min != 100 || r.P25 != 200 || r.P50 != 300 || r.P75 != 400 || r.P99 != 500 || r.Max != 500 {
		t.Fatalf("unexpected percentiles: %+v", r)
	}
	if r.Mean != 300 {
		t.Fatalf("mean = %v, want 300", r.Mean)
	}
	expectedStdDev := math.Sqrt(100000.0 / 4.0)
	if math.Abs(r.StdDev-expectedStdDev) > 1e-6 {
		t.Fatalf("stddev = %v, want %v", r.StdDev, expectedStdDev)
	}
}

func TestComputeSingleElement(t *testing.T) {
	r := Compute([]int64{42}, nil)
	if r.StdDev != 0 {
		t.Fatalf("stddev for n=1 should be 0, got %v", r.StdDev)
	}
	if r.Min != 42 || r.Max != 42 || r.P50 != 42 {
		t.Fatalf("unexpected stats for single element: %+v", r)
	}
}

func TestComputeLargeSampleMatchesFullSort(t *testing.T) {
	n := 50_000
	data := make([]int64, n)
	rng := rand.New(rand.NewSource(7))
	for i := range data {
		data[i] = rng.Int63n(1_000_000)
	}

	reference := make([]int64, n)
	copy(reference, data)
	sort.Slice(reference, func(i, j int) bool { return reference[i] < reference[j] })

	r := Compute(data, nil)

	check := func(name string, got int64, p float64) {
		idx := int(p * float64(n))
		if idx >= n {
			idx = n - 1
		}
		want := reference[idx]
		if got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
	check("P0", r.P0, 0)
	check("P25", r.P25, 0.25)
	check("P50", r.P50, 0.5)
	check("P75", r.P75, 0.75)
	check("P90", r.P90, 0.90)
	check("P95", r.P95, 0.95)
	check("P99", r.P99, 0.99)
	check("P100", r.P100, 1.0)
}

func TestQuickselectIndependentOfPivot(t *testing.T) {
	data := []int64{9, 3, 7, 1, 8, 2, 6, 4, 5}
	rng := rand.New(rand.NewSource(1))
	cp := make([]int64, len(data))
	copy(cp, data)
	got := quickselect(cp, 4, rng)
	if got != 5 {
		t.Fatalf("quickselect(4) = %d, want 5", got)
	}
}

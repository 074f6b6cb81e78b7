// Package histogram provides a lock-free multiset keyed by an
// arbitrary comparable key (transaction-type identifier, in this
// engine), used to count transaction outcomes without a worker ever
// blocking on another worker's update.
//
// Grounded on the teacher's atomic-counter idiom in
// internal/metrics/collector.go and pkg/types.Metrics, where every
// counter is a plain int64 field updated with atomic.AddInt64;
// generalized here to an arbitrary key type.
package histogram

import (
	"reflect"
	"sync"

	"go.uber.org/atomic"
	stdatomic "sync/atomic"
)

// Histogram is a concurrent multiset: Put increments a key's count
// without holding any lock across increments, Get/Snapshot/Total read
// a best-effort, individually-consistent view.
type Histogram[K comparable] struct {
	counts sync.Map // K -> *stdatomic.Int64
	total  atomic.Int64
}

// New returns an empty Histogram for key type K.
func New[K comparable]() *Histogram[K] {
	return &Histogram[K]{}
}

// Put increments the counter for k by 1. A nil key (meaningful only
// when K is a pointer or interface type) is silently ignored.
func (h *Histogram[K]) Put(k K) {
	h.PutN(k, 1)
}

// PutN increments the counter for k by n. A nil key is silently
// ignored.
func (h *Histogram[K]) PutN(k K, n int64) {
	if isNilKey(k) {
		return
	}
	counter := h.counterFor(k)
	counter.Add(n)
	h.total.Add(n)
}

func (h *Histogram[K]) counterFor(k K) *stdatomic.Int64 {
	if v, ok := h.counts.Load(k); ok {
		return v.(*stdatomic.Int64)
	}
	fresh := new(stdatomic.Int64)
	actual, _ := h.counts.LoadOrStore(k, fresh)
	return actual.(*stdatomic.Int64)
}

// Get returns the current count for k, or 0 if k has never been put.
func (h *Histogram[K]) Get(k K) int64 {
	if v, ok := h.counts.Load(k); ok {
		return v.(*stdatomic.Int64).Load()
	}
	return 0
}

// Keys returns the set of keys observed so far, in no particular
// order.
func (h *Histogram[K]) Keys() []K {
	var keys []K
	h.counts.Range(func(k, _ any) bool {
		keys = append(keys, k.(K))
		return true
	})
	return keys
}

// Snapshot copies the current key->count pairs. It is not a
// consistent cut across keys — concurrent Puts may land before or
// after any individual key is copied — but each individual count
// reflects a real intermediate value that existed at some point
// during the snapshot.
func (h *Histogram[K]) Snapshot() map[K]int64 {
	out := make(map[K]int64)
	h.counts.Range(func(k, v any) bool {
		out[k.(K)] = v.(*stdatomic.Int64).Load()
		return true
	})
	return out
}

// Total returns Σ counts. At a quiescent point this is exact; under
// concurrent Puts it is a best-effort lower bound observing all
// completed increments (happens-before via the underlying atomic add).
func (h *Histogram[K]) Total() int64 {
	return h.total.Load()
}

// Merge returns a new Histogram whose count for every key k equals
// a.Get(k) + b.Get(k), satisfying Merge(a, b).Get(k) == a.Get(k) +
// b.Get(k) for all k.
func Merge[K comparable](a, b *Histogram[K]) *Histogram[K] {
	out := New[K]()
	if a != nil {
		for k, v := range a.Snapshot() {
			out.PutN(k, v)
		}
	}
	if b != nil {
		for k, v := range b.Snapshot() {
			out.PutN(k, v)
		}
	}
	return out
}

// MergeFrom folds other's counts into h in place, without allocating
// an intermediate result.
func (h *Histogram[K]) MergeFrom(other *Histogram[K]) {
	if other == nil {
		return
	}
	for k, v := range other.Snapshot() {
		h.PutN(k, v)
	}
}

// isNilKey reports whether k is a nil pointer or interface value.
// For non-nilable key types (string, int, struct) this always
// reports false.
func isNilKey[K comparable](k K) bool {
	v := reflect.ValueOf(any(k))
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}

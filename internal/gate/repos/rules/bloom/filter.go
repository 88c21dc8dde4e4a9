// Package bloom provides a membership filter over origins that carry any
// rule. A definitive negative lets the engine allow a navigation without
// consulting the verdict cache or the rule snapshot.
package bloom

import blooms "github.com/bits-and-blooms/bloom/v3"

// minCapacity keeps the filter usable while the rule set is tiny.
const minCapacity = 64

// Filter wraps a bits-and-blooms filter behind the narrow surface the
// engine needs. False positives are possible, false negatives are not.
type Filter struct {
	bf *blooms.BloomFilter
}

// New creates a filter sized for n keys at the target false-positive rate.
func New(n uint, fpRate float64) *Filter {
	if n < minCapacity {
		n = minCapacity
	}
	return &Filter{bf: blooms.NewWithEstimates(n, fpRate)}
}

// FromOrigins builds a filter pre-populated with every origin in the list.
func FromOrigins(origins []string, fpRate float64) *Filter {
	f := New(uint(len(origins)), fpRate)
	for _, o := range origins {
		f.Add(o)
	}
	return f
}

// Add inserts an origin key.
func (f *Filter) Add(origin string) {
	f.bf.AddString(origin)
}

// MightContain reports whether the origin may carry rules. A false result
// is authoritative: the origin definitely has none.
func (f *Filter) MightContain(origin string) bool {
	return f.bf.TestString(origin)
}

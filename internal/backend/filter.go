// Package backend implements the back-end coordinator's state machine: a
// single cooperative loop attaching to GDB, absorbing startup output,
// then repeatedly draining, classifying, filtering, tagging and batching
// records upward.
package backend

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/tos-network/pgdb/internal/mi"
)

// FilterSet is the set of record subtypes a back-end currently suppresses,
// updated atomically (with respect to the parse loop) by broadcast filter
// messages.
type FilterSet struct {
	set mapset.Set
}

// NewFilterSet constructs an empty FilterSet.
func NewFilterSet() *FilterSet {
	return &FilterSet{set: mapset.NewSet()}
}

// Add suppresses the given subtypes.
func (f *FilterSet) Add(subtypes ...string) {
	for _, s := range subtypes {
		f.set.Add(s)
	}
}

// Remove un-suppresses the given subtypes.
func (f *FilterSet) Remove(subtypes ...string) {
	for _, s := range subtypes {
		f.set.Remove(s)
	}
}

// Suppresses reports whether rec's subtype set intersects the filter set;
// a suppressed record is dropped before aggregation.
func (f *FilterSet) Suppresses(rec mi.Record) bool {
	for _, s := range rec.Subtypes {
		if f.set.Contains(s) {
			return true
		}
	}
	return false
}

// Package rankset implements the compressed disjoint-interval rank sets used
// throughout pgdb to address subsets of a job's ranks without materializing
// per-rank lists.
package rankset

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// span is a closed, inclusive interval [Lo, Hi].
type span struct {
	Lo, Hi int
}

// Set is an immutable sorted sequence of disjoint, maximally-coalesced
// closed intervals. The zero value is the empty set.
type Set struct {
	spans []span
}

// Empty is the set containing no ranks.
var Empty = Set{}

// FromSorted builds a Set from a list of ranks that is already sorted in
// non-decreasing order, coalescing touching and adjacent values in a single
// linear pass.
func FromSorted(sorted []int) Set {
	return Set{spans: coalesce(sorted)}
}

// FromList builds a Set from an arbitrary list of ranks, sorting it first
// when necessary.
func FromList(ranks []int) Set {
	if len(ranks) == 0 {
		return Empty
	}
	cp := append([]int(nil), ranks...)
	if !sort.IntsAreSorted(cp) {
		sort.Ints(cp)
	}
	return Set{spans: coalesce(cp)}
}

// FromRange builds the set {lo, lo+1, ..., hi}. An empty set is returned if
// lo > hi.
func FromRange(lo, hi int) Set {
	if lo > hi {
		return Empty
	}
	return Set{spans: []span{{Lo: lo, Hi: hi}}}
}

func coalesce(sorted []int) []span {
	if len(sorted) == 0 {
		return nil
	}
	out := make([]span, 0, len(sorted))
	cur := span{Lo: sorted[0], Hi: sorted[0]}
	for _, v := range sorted[1:] {
		if v == cur.Hi || v == cur.Hi+1 {
			if v > cur.Hi {
				cur.Hi = v
			}
			continue
		}
		out = append(out, cur)
		cur = span{Lo: v, Hi: v}
	}
	out = append(out, cur)
	return out
}

// GobEncode implements gob.GobEncoder: Set's spans field is unexported (an
// implementation detail, not public API), so it needs an explicit bridge
// to cross the overlay wire inside a gob-encoded command or aggregated
// record, the same role Command/Token addressing needs for any value type
// it carries.
func (s Set) GobEncode() ([]byte, error) {
	flat := make([]int, 0, len(s.spans)*2)
	for _, sp := range s.spans {
		flat = append(flat, sp.Lo, sp.Hi)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(flat); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, the inverse of GobEncode.
func (s *Set) GobDecode(data []byte) error {
	var flat []int
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&flat); err != nil {
		return err
	}
	spans := make([]span, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		spans = append(spans, span{Lo: flat[i], Hi: flat[i+1]})
	}
	s.spans = spans
	return nil
}

// fromCoalescedSpans wraps an already-disjoint, already-sorted, already
// touching-free span list without re-validating it; used internally by the
// set algebra below, whose merges produce such a list directly.
func fromCoalescedSpans(spans []span) Set {
	if len(spans) == 0 {
		return Empty
	}
	return Set{spans: spans}
}

// Contains reports whether x is a member of the set, by binary search over
// the interval array.
func (s Set) Contains(x int) bool {
	spans := s.spans
	lo, hi := 0, len(spans)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case x < spans[mid].Lo:
			hi = mid - 1
		case x > spans[mid].Hi:
			lo = mid + 1
		default:
			return true
		}
	}
	return false
}

// Members returns every rank in the set, in ascending order. The slice is
// computed eagerly; callers iterating very large sets should prefer Each.
func (s Set) Members() []int {
	out := make([]int, 0, s.Count())
	s.Each(func(r int) { out = append(out, r) })
	return out
}

// Each calls fn once for every rank in the set in ascending order.
func (s Set) Each(fn func(rank int)) {
	for _, sp := range s.spans {
		for r := sp.Lo; r <= sp.Hi; r++ {
			fn(r)
		}
	}
}

// Count returns the number of ranks represented by the set.
func (s Set) Count() int {
	n := 0
	for _, sp := range s.spans {
		n += sp.Hi - sp.Lo + 1
	}
	return n
}

// IsEmpty reports whether the set contains no ranks.
func (s Set) IsEmpty() bool { return len(s.spans) == 0 }

// Smallest returns the smallest rank in the set and true, or (0, false) if
// the set is empty.
func (s Set) Smallest() (int, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.spans[0].Lo, true
}

// Largest returns the largest rank in the set and true, or (0, false) if the
// set is empty.
func (s Set) Largest() (int, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.spans[len(s.spans)-1].Hi, true
}

// Range returns a new set covering every rank from the smallest to the
// largest rank in s, inclusive -- i.e. the span [smallest, largest]
// collapsed to a single interval, filling in any gaps. The empty set's
// range is itself the empty set.
func (s Set) Range() Set {
	lo, ok := s.Smallest()
	if !ok {
		return Set{}
	}
	hi, _ := s.Largest()
	return FromRange(lo, hi)
}

// Union returns a new set containing every rank in s or other. Both operand
// span arrays are already sorted and internally coalesced, so a single
// merge-by-Lo sweep followed by in-line coalescing is enough: O(n+m).
func (s Set) Union(other Set) Set {
	if s.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return s
	}
	a, b := s.spans, other.spans
	out := make([]span, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Lo <= b[j].Lo {
			out = appendSpan(out, a[i])
			i++
		} else {
			out = appendSpan(out, b[j])
			j++
		}
	}
	for ; i < len(a); i++ {
		out = appendSpan(out, a[i])
	}
	for ; j < len(b); j++ {
		out = appendSpan(out, b[j])
	}
	return fromCoalescedSpans(out)
}

// appendSpan appends sp to a Lo-sorted span list, coalescing it into the
// last entry if they overlap or touch.
func appendSpan(out []span, sp span) []span {
	if len(out) > 0 && overlapsOrAdjacent(out[len(out)-1], sp) {
		out[len(out)-1] = merge(out[len(out)-1], sp)
		return out
	}
	return append(out, sp)
}

func overlapsOrAdjacent(a, b span) bool {
	return a.Hi+1 >= b.Lo && b.Hi+1 >= a.Lo
}

func merge(a, b span) span {
	lo, hi := a.Lo, a.Hi
	if b.Lo < lo {
		lo = b.Lo
	}
	if b.Hi > hi {
		hi = b.Hi
	}
	return span{Lo: lo, Hi: hi}
}

// Intersection returns a new set containing every rank present in both s
// and other.
func (s Set) Intersection(other Set) Set {
	if s.IsEmpty() || other.IsEmpty() {
		return Empty
	}
	a, b := s.spans, other.spans
	var out []span
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := maxInt(a[i].Lo, b[j].Lo)
		hi := minInt(a[i].Hi, b[j].Hi)
		if lo <= hi {
			out = append(out, span{Lo: lo, Hi: hi})
		}
		if a[i].Hi < b[j].Hi {
			i++
		} else {
			j++
		}
	}
	return fromCoalescedSpans(out)
}

// Difference returns a new set containing every rank in s that is not in
// other.
func (s Set) Difference(other Set) Set {
	if s.IsEmpty() || other.IsEmpty() {
		return s
	}
	a, b := s.spans, other.spans
	var out []span
	i, j := 0, 0
	for i < len(a) {
		cur := a[i]
		for j < len(b) && b[j].Hi < cur.Lo {
			j++
		}
		k := j
		for k < len(b) && b[k].Lo <= cur.Hi {
			if cur.Lo < b[k].Lo {
				out = append(out, span{Lo: cur.Lo, Hi: b[k].Lo - 1})
			}
			if b[k].Hi+1 > cur.Lo {
				cur.Lo = b[k].Hi + 1
			}
			k++
		}
		if cur.Lo <= cur.Hi {
			out = append(out, cur)
		}
		i++
	}
	return fromCoalescedSpans(out)
}

// SymmetricDifference returns (s ∪ other) − (s ∩ other).
func (s Set) SymmetricDifference(other Set) Set {
	return s.Union(other).Difference(s.Intersection(other))
}

// Equals reports whether s and other contain exactly the same ranks.
func (s Set) Equals(other Set) bool {
	if len(s.spans) != len(other.spans) {
		return false
	}
	for i := range s.spans {
		if s.spans[i] != other.spans[i] {
			return false
		}
	}
	return true
}

// Hash returns an order-independent hash of the set, folding every interval
// tuple with XOR so that two sets built through different merge orders but
// representing the same ranks hash equally.
func (s Set) Hash() uint64 {
	var h uint64
	for _, sp := range s.spans {
		// splitmix64-style avalanche per span before folding, so that
		// adjacent spans with swapped bits don't cancel each other out.
		v := uint64(sp.Lo)<<32 | uint64(uint32(sp.Hi))
		v = avalanche(v)
		h ^= v
	}
	return h
}

func avalanche(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// String renders the set as a comma-separated list of singleton ranks and
// "lo-hi" ranges, e.g. "0-31,40,52-63".
func (s Set) String() string {
	if s.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(s.spans))
	for _, sp := range s.spans {
		if sp.Lo == sp.Hi {
			parts = append(parts, strconv.Itoa(sp.Lo))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", sp.Lo, sp.Hi))
		}
	}
	return strings.Join(parts, ",")
}

// Parse parses the shell's `proc <spec>` grammar: "all", "-1" (an alias
// for all, the launcher convention for "every rank"), or a comma-separated
// list of integers and "a-b" ranges.
func Parse(spec string, allRanks Set) (Set, error) {
	spec = strings.TrimSpace(spec)
	switch spec {
	case "all", "-1":
		return allRanks, nil
	case "":
		return Empty, fmt.Errorf("rankset: empty spec")
	}
	var ranks []int
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if i := strings.IndexByte(field, '-'); i > 0 {
			loS, hiS := field[:i], field[i+1:]
			lo, err := strconv.Atoi(loS)
			if err != nil {
				return Empty, fmt.Errorf("rankset: bad range %q: %w", field, err)
			}
			hi, err := strconv.Atoi(hiS)
			if err != nil {
				return Empty, fmt.Errorf("rankset: bad range %q: %w", field, err)
			}
			if lo > hi {
				return Empty, fmt.Errorf("rankset: inverted range %q", field)
			}
			for r := lo; r <= hi; r++ {
				ranks = append(ranks, r)
			}
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return Empty, fmt.Errorf("rankset: bad rank %q: %w", field, err)
		}
		ranks = append(ranks, v)
	}
	return FromList(ranks), nil
}

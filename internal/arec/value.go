package arec

import (
	"bytes"
	"encoding/gob"

	"github.com/tos-network/pgdb/internal/mi"
	"github.com/tos-network/pgdb/internal/rankset"
)

// domainObjectFields names the record fields whose tuple value carries a
// typed domain object (frame, breakpoint, thread) and is therefore
// treated as a single atomic leaf rather than walked field-by-field. The
// set is keyed by field name because the rule is about which fields carry
// domain objects in a given record shape, not about the shape of the
// value itself.
var domainObjectFields = map[string]bool{
	"frame":      true,
	"bkpt":       true,
	"breakpoint": true,
	"thread":     true,
}

// kind discriminates the three shapes an AggValue node can take.
type kind int

const (
	kindLeaf kind = iota
	kindList
	kindTuple
)

// AggValue is one node of the aggregated-record value tree: a leaf
// substitution, or a container (list/tuple) whose shape is preserved
// verbatim while its leaves are walked individually.
type AggValue struct {
	kind  kind
	leaf  *Substitution
	list  []AggValue
	tuple map[string]AggValue
}

// Leaf wraps a Substitution as a leaf AggValue.
func Leaf(s Substitution) AggValue { return AggValue{kind: kindLeaf, leaf: &s} }

// aggValueWire is AggValue's exported mirror: AggValue's own fields are
// unexported (to keep `kind` an implementation detail rather than public
// API), so gob needs an explicit bridge to encode/decode it, the same role
// rankset.Set's GobEncode/GobDecode play for its own unexported spans.
type aggValueWire struct {
	Kind  int
	Leaf  *Substitution
	List  []AggValue
	Tuple map[string]AggValue
}

// GobEncode implements gob.GobEncoder so AggValue trees can ride inside a
// gob-encoded AggregatedRecord across the overlay wire.
func (a AggValue) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	w := aggValueWire{Kind: int(a.kind), Leaf: a.leaf, List: a.list, Tuple: a.tuple}
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, the inverse of GobEncode.
func (a *AggValue) GobDecode(data []byte) error {
	var w aggValueWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	a.kind = kind(w.Kind)
	a.leaf = w.Leaf
	a.list = w.List
	a.tuple = w.Tuple
	return nil
}

// isPrimitiveValue reports whether v is a leaf-eligible scalar: GDB/MI
// only ever produces strings on the wire, so "primitive" collapses to
// mi.StringValue (its Int() accessor covers numeric fields) or nil.
func isPrimitiveValue(v mi.Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(mi.StringValue)
	return ok
}

func isListOfPrimitives(l mi.ListValue) bool {
	for _, v := range l {
		if !isPrimitiveValue(v) {
			return false
		}
	}
	return true
}

// buildFieldValue builds the AggValue for one named top-level field of a
// single-rank record observed at rank.
func buildFieldValue(name string, v mi.Value, rank int) AggValue {
	if domainObjectFields[name] {
		if _, ok := v.(mi.TupleValue); ok {
			return Leaf(newSubstitution(v, rank))
		}
	}
	return buildValue(v, rank)
}

// buildValue walks an arbitrary value, recursing into tuples and
// non-primitive lists, and producing leaves for primitives, primitive
// lists, and (via buildFieldValue) domain objects.
func buildValue(v mi.Value, rank int) AggValue {
	switch val := v.(type) {
	case mi.TupleValue:
		out := make(map[string]AggValue, len(val))
		for k, fv := range val {
			out[k] = buildFieldValue(k, fv, rank)
		}
		return AggValue{kind: kindTuple, tuple: out}
	case mi.ListValue:
		if isListOfPrimitives(val) {
			return Leaf(newSubstitution(v, rank))
		}
		out := make([]AggValue, len(val))
		for i, ev := range val {
			out[i] = buildValue(ev, rank)
		}
		return AggValue{kind: kindList, list: out}
	default:
		return Leaf(newSubstitution(v, rank))
	}
}

// reconstruct rebuilds the original mi.Value for rank, or the default
// shape if rank holds no override anywhere in the tree.
func (a AggValue) reconstruct(rank int) mi.Value {
	switch a.kind {
	case kindLeaf:
		return a.leaf.valueFor(rank)
	case kindList:
		out := make(mi.ListValue, len(a.list))
		for i, ev := range a.list {
			out[i] = ev.reconstruct(rank)
		}
		return out
	case kindTuple:
		out := make(mi.TupleValue, len(a.tuple))
		for k, fv := range a.tuple {
			out[k] = fv.reconstruct(rank)
		}
		return out
	}
	panic("arec: unreachable AggValue kind")
}

// reconstructDefault rebuilds the majority value: each leaf resolves to
// its substitution's default, ignoring every override.
func (a AggValue) reconstructDefault() mi.Value {
	switch a.kind {
	case kindLeaf:
		return a.leaf.Default
	case kindList:
		out := make(mi.ListValue, len(a.list))
		for i, ev := range a.list {
			out[i] = ev.reconstructDefault()
		}
		return out
	case kindTuple:
		out := make(mi.TupleValue, len(a.tuple))
		for k, fv := range a.tuple {
			out[k] = fv.reconstructDefault()
		}
		return out
	}
	panic("arec: unreachable AggValue kind")
}

// mergeValue merges two AggValue trees of identical container shape.
// The outer shape key only covers the record's (type, subtypes,
// field-names), so an inner container mismatch (e.g. one rank's
// "threads" list having 2 elements and another's having 3) can still
// surface here; it gets the same escalation as an outer mismatch --
// refuse to merge and let the caller route both records unmerged.
func mergeValue(a, b AggValue, aRanks, bRanks rankset.Set) AggValue {
	if a.kind != b.kind {
		panic(ShapeMismatchError{Reason: "container kind mismatch"})
	}
	switch a.kind {
	case kindLeaf:
		return Leaf(mergeSubstitution(*a.leaf, *b.leaf, aRanks, bRanks))
	case kindList:
		if len(a.list) != len(b.list) {
			panic(ShapeMismatchError{Reason: "list length mismatch"})
		}
		out := make([]AggValue, len(a.list))
		for i := range a.list {
			out[i] = mergeValue(a.list[i], b.list[i], aRanks, bRanks)
		}
		return AggValue{kind: kindList, list: out}
	case kindTuple:
		if len(a.tuple) != len(b.tuple) {
			panic(ShapeMismatchError{Reason: "tuple field-set mismatch"})
		}
		out := make(map[string]AggValue, len(a.tuple))
		for k, av := range a.tuple {
			bv, ok := b.tuple[k]
			if !ok {
				panic(ShapeMismatchError{Reason: "tuple missing field " + k})
			}
			out[k] = mergeValue(av, bv, aRanks, bRanks)
		}
		return AggValue{kind: kindTuple, tuple: out}
	}
	panic("arec: unreachable AggValue kind")
}

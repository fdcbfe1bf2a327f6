package arec

import (
	"encoding/gob"
	"strconv"

	"github.com/tos-network/pgdb/internal/mi"
	"github.com/tos-network/pgdb/internal/rankset"
)

// tokenValue and textValue are pgdb-local mi.Value implementations, so
// (unlike mi's own concrete Value types, registered in mi/value.go) they
// must register themselves for gob.
func init() {
	gob.Register(tokenValue{})
	gob.Register(textValue(""))
}

// tokenValue adapts mi.Record's *int64 Token into an mi.Value so it can
// ride inside a Substitution alongside every other field. The field is
// exported for gob's sake only.
type tokenValue struct {
	S string // "" means nil token
}

func (t tokenValue) Equal(o mi.Value) bool {
	ov, ok := o.(tokenValue)
	return ok && ov.S == t.S
}

func (t tokenValue) Format() string { return t.S }

func (t tokenValue) Native() interface{} {
	if t.S == "" {
		return nil
	}
	return t.S
}

func tokenToValue(tok *int64) mi.Value {
	if tok == nil {
		return tokenValue{}
	}
	return tokenValue{S: strconv.FormatInt(*tok, 10)}
}

func valueToToken(v mi.Value) *int64 {
	tv, ok := v.(tokenValue)
	if !ok || tv.S == "" {
		return nil
	}
	n, err := strconv.ParseInt(tv.S, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// textValue adapts a stream/unknown record's plain Text into an mi.Value.
type textValue string

func (t textValue) Equal(o mi.Value) bool {
	ov, ok := o.(textValue)
	return ok && ov == t
}
func (t textValue) Format() string      { return string(t) }
func (t textValue) Native() interface{} { return string(t) }

// AggregatedRecord is the compressed representation of many same-shape
// mi.Record observations, one per rank in Ranks: a record's class token
// and wire token collapse into ordinary Substitutions, and its fields
// collapse into an AggValue tree per field name.
type AggregatedRecord struct {
	Shape  Shape
	Ranks  rankset.Set
	Class  Substitution
	Token  Substitution
	Text   Substitution
	Fields map[string]AggValue
}

// NewSingleRank builds an AggregatedRecord describing a single rank's
// observation of r.
func NewSingleRank(r mi.Record, rank int) AggregatedRecord {
	fields := make(map[string]AggValue, len(r.Fields))
	for name, v := range r.Fields {
		fields[name] = buildFieldValue(name, v, rank)
	}
	return AggregatedRecord{
		Shape:  shapeOf(r),
		Ranks:  rankset.FromList([]int{rank}),
		Class:  newSubstitution(mi.StringValue(r.Class), rank),
		Token:  newSubstitution(tokenToValue(r.Token), rank),
		Text:   newSubstitution(textValue(r.Text), rank),
		Fields: fields,
	}
}

// NewForRanks builds an AggregatedRecord describing the identical
// observation r shared, as-is, across every member of ranks -- the
// representation a back-end wraps an untagged record in, since every rank
// it defaults to reported the exact same value.
func NewForRanks(r mi.Record, ranks rankset.Set) AggregatedRecord {
	// An arbitrary representative rank seeds the Substitution defaults;
	// since every member of ranks shares the same value there is nothing
	// to tally yet, so any rank number works as the nominal seed.
	seed, ok := ranks.Smallest()
	if !ok {
		seed = 0
	}
	fields := make(map[string]AggValue, len(r.Fields))
	for name, v := range r.Fields {
		fields[name] = buildFieldValue(name, v, seed)
	}
	return AggregatedRecord{
		Shape:  shapeOf(r),
		Ranks:  ranks,
		Class:  newSubstitution(mi.StringValue(r.Class), seed),
		Token:  newSubstitution(tokenToValue(r.Token), seed),
		Text:   newSubstitution(textValue(r.Text), seed),
		Fields: fields,
	}
}

// Classify reports the shape key used to group same-shape aggregated
// records together, e.g. at a relay before merging.
func (a AggregatedRecord) Classify() string { return a.Shape.Key() }

// Merge combines a and b, which must share a.Shape == b.Shape, into one
// AggregatedRecord over the union of their ranks. It returns an error
// (never panics past this boundary) if any field's value tree turns out
// not to share shape despite the outer Shape matching -- an inner
// container whose length or field set differs between a rank of a and a
// rank of b.
func (a AggregatedRecord) Merge(b AggregatedRecord) (result AggregatedRecord, err error) {
	if !a.Shape.Equal(b.Shape) {
		return AggregatedRecord{}, ShapeMismatchError{Reason: "outer record shape mismatch"}
	}
	defer func() {
		if r := recover(); r != nil {
			if sme, ok := r.(ShapeMismatchError); ok {
				err = sme
				return
			}
			panic(r)
		}
	}()

	mergedRanks := a.Ranks.Union(b.Ranks)
	fields := make(map[string]AggValue, len(a.Fields))
	for name, av := range a.Fields {
		bv, ok := b.Fields[name]
		if !ok {
			panic(ShapeMismatchError{Reason: "field missing in peer: " + name})
		}
		fields[name] = mergeValue(av, bv, a.Ranks, b.Ranks)
	}
	for name := range b.Fields {
		if _, ok := a.Fields[name]; !ok {
			panic(ShapeMismatchError{Reason: "field missing in peer: " + name})
		}
	}

	return AggregatedRecord{
		Shape:  a.Shape,
		Ranks:  mergedRanks,
		Class:  mergeSubstitution(a.Class, b.Class, a.Ranks, b.Ranks),
		Token:  mergeSubstitution(a.Token, b.Token, a.Ranks, b.Ranks),
		Text:   mergeSubstitution(a.Text, b.Text, a.Ranks, b.Ranks),
		Fields: fields,
	}, nil
}

// Representative rebuilds the majority record: every leaf resolves to its
// substitution's default, never a per-rank override. This is what the
// front-end's flush view prints -- one line per aggregated record, with
// minority values staying hidden until an explicit expand.
func (a AggregatedRecord) Representative() mi.Record {
	fields := make(mi.TupleValue, len(a.Fields))
	for name, av := range a.Fields {
		fields[name] = av.reconstructDefault()
	}
	class := string(a.Class.Default.(mi.StringValue))
	text := string(a.Text.Default.(textValue))
	token := valueToToken(a.Token.Default)

	subtypes := append([]string(nil), a.Shape.Subtypes...)
	return mi.Record{
		Type:     a.Shape.Type,
		Class:    class,
		Subtypes: subtypes,
		Token:    token,
		Fields:   fields,
		Text:     text,
	}
}

// Reconstruct rebuilds the mi.Record as observed at rank, or false if rank
// is not a member of a.Ranks.
func (a AggregatedRecord) Reconstruct(rank int) (mi.Record, bool) {
	if !a.Ranks.Contains(rank) {
		return mi.Record{}, false
	}
	fields := make(mi.TupleValue, len(a.Fields))
	for name, av := range a.Fields {
		fields[name] = av.reconstruct(rank)
	}
	class := string(a.Class.valueFor(rank).(mi.StringValue))
	text := string(a.Text.valueFor(rank).(textValue))
	token := valueToToken(a.Token.valueFor(rank))

	subtypes := append([]string(nil), a.Shape.Subtypes...)
	return mi.Record{
		Type:     a.Shape.Type,
		Class:    class,
		Subtypes: subtypes,
		Token:    token,
		Fields:   fields,
		Text:     text,
	}, true
}

// EquivalenceClass is one partition of an AggregatedRecord's ranks that
// all reconstruct to an equal mi.Record.
type EquivalenceClass struct {
	Ranks          rankset.Set
	Representative mi.Record
}

// EquivalenceClasses partitions a.Ranks so that two ranks share a class
// iff reconstruction yields equal records. The front-end uses this to
// print one representative per class, largest first.
func (a AggregatedRecord) EquivalenceClasses() []EquivalenceClass {
	type bucket struct {
		ranks []int
		rec   mi.Record
	}
	var buckets []bucket

	a.Ranks.Each(func(r int) {
		rec, _ := a.Reconstruct(r)
		for i := range buckets {
			if buckets[i].rec.Equal(rec) {
				buckets[i].ranks = append(buckets[i].ranks, r)
				return
			}
		}
		buckets = append(buckets, bucket{ranks: []int{r}, rec: rec})
	})

	classes := make([]EquivalenceClass, len(buckets))
	for i, b := range buckets {
		classes[i] = EquivalenceClass{Ranks: rankset.FromList(b.ranks), Representative: b.rec}
	}
	return classes
}

// Package arec implements the aggregated-record representation: a record
// shape carrying, per field, a majority default plus a sparse minority
// override map, addressed by a rankset.Set.
package arec

import (
	"strings"

	"github.com/tos-network/pgdb/internal/mi"
)

// Shape is the tuple (type, subtypes, field-names) that determines merge
// compatibility: only same-shape aggregated records may be merged, even if
// their type and subtypes match but their field-name sets differ.
type Shape struct {
	Type     mi.RecordType
	Subtypes []string // sorted
	Fields   []string // sorted
}

func shapeOf(r mi.Record) Shape {
	subtypes := append([]string(nil), r.Subtypes...)
	fields := r.FieldNames()
	return Shape{Type: r.Type, Subtypes: subtypes, Fields: fields}
}

// Key returns a string uniquely identifying the shape, suitable for use as
// a map key when grouping same-shape aggregated records at a relay.
func (s Shape) Key() string {
	var b strings.Builder
	b.WriteString(string(s.Type))
	b.WriteByte('|')
	b.WriteString(strings.Join(s.Subtypes, ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(s.Fields, ","))
	return b.String()
}

// Equal reports whether two shapes are identical.
func (s Shape) Equal(o Shape) bool {
	return s.Key() == o.Key()
}

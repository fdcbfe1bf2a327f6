package mi

import (
	"encoding/gob"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Concrete Value implementations ride inside gob-encoded aggregated
// records as an interface field, so they must be registered before any
// value crosses the wire.
func init() {
	gob.Register(StringValue(""))
	gob.Register(ListValue{})
	gob.Register(TupleValue{})
}

// Value is a parsed GDB/MI payload value: a string, a tuple (result_list
// wrapped in {}), or a list (value_list or result_list wrapped in []).
type Value interface {
	// Equal reports structural equality with another Value.
	Equal(Value) bool
	// Format re-serializes the value into MI wire syntax.
	Format() string
	// Native converts the value into a plain Go value (string,
	// []interface{} or map[string]interface{}) suitable for
	// mapstructure-based decoding into domain objects.
	Native() interface{}
}

// StringValue is a leaf scalar; GDB/MI does not distinguish strings from
// integers on the wire; Int provides best-effort conversion for
// consumers that know a field is numeric.
type StringValue string

func (s StringValue) Equal(other Value) bool {
	o, ok := other.(StringValue)
	return ok && s == o
}

func (s StringValue) Format() string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range string(s) {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (s StringValue) Native() interface{} { return string(s) }

// Int returns the value parsed as a base-10 integer, and whether that
// parse succeeded.
func (s StringValue) Int() (int64, bool) {
	v, err := strconv.ParseInt(string(s), 10, 64)
	return v, err == nil
}

// ListValue is an ordered sequence of values: either a bare value_list or,
// once the field-name list entries of the underlying tuple collapse
// repeats, the list that a repeated result-name resolves to.
type ListValue []Value

func (l ListValue) Equal(other Value) bool {
	o, ok := other.(ListValue)
	if !ok || len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (l ListValue) Format() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.Format()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (l ListValue) Native() interface{} {
	out := make([]interface{}, len(l))
	for i, v := range l {
		out[i] = v.Native()
	}
	return out
}

// TupleValue is an unordered name->value mapping produced by a {} tuple or
// a reclassified [] result list. Key order is not significant to equality;
// Format renders keys in sorted order so that re-serialization is
// deterministic.
type TupleValue map[string]Value

func (t TupleValue) Equal(other Value) bool {
	o, ok := other.(TupleValue)
	if !ok || len(t) != len(o) {
		return false
	}
	for k, v := range t {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (t TupleValue) Format() string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, t[k].Format())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (t TupleValue) Native() interface{} {
	out := make(map[string]interface{}, len(t))
	for k, v := range t {
		out[k] = v.Native()
	}
	return out
}

// setField applies the "repeated names collapse to a list" rule: the first
// repeat turns the existing scalar into a two-element list, further
// repeats append.
func setField(m map[string]Value, name string, v Value) {
	existing, ok := m[name]
	if !ok {
		m[name] = v
		return
	}
	if list, ok := existing.(ListValue); ok {
		m[name] = append(list, v)
		return
	}
	m[name] = ListValue{existing, v}
}

// FieldNames returns the sorted field-name list of a tuple, part of the
// shape key used by aggregated-record merging.
func FieldNames(t TupleValue) []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

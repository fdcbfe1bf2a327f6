package mi

import "strings"

// Parse parses one logical MI line into a typed Record. It never returns
// an error: malformed input, or a well-formed payload whose field shapes
// don't match what the record's type implies, becomes a Record of Type
// Unknown carrying the original text.
func Parse(line string) Record {
	header, ok := splitLineHeader(line)
	if !ok {
		return unknownRecord(line)
	}
	typ := typeForSymbol(header.symbol)
	if typ.IsStream() {
		text, err := parseStreamText(header.rest)
		if err != nil {
			return unknownRecord(line)
		}
		return Record{Type: typ, Token: header.token, Text: text}
	}
	class, fieldsBody := splitClassAndFields(header.rest)
	if class == "" {
		return unknownRecord(line)
	}
	fields, err := parsePayload(fieldsBody)
	if err != nil {
		return unknownRecord(line)
	}
	if !fieldShapesOK(fields) {
		return unknownRecord(line)
	}
	return Record{
		Type:     typ,
		Class:    class,
		Subtypes: deriveSubtypes(class, fields),
		Token:    header.token,
		Fields:   fields,
	}
}

func unknownRecord(line string) Record {
	return Record{Type: TypeUnknown, Text: line}
}

// splitClassAndFields splits "class,name=value,..." into its class token
// and the remaining fields body (without the separating comma). A payload
// that is only a class token (no comma) returns an empty fields body.
func splitClassAndFields(rest string) (class string, fields string) {
	i := strings.IndexAny(rest, ",")
	// the class token itself must not contain structural characters;
	// a malformed line missing a class entirely is rejected by the
	// caller via an empty return.
	end := len(rest)
	if i >= 0 {
		end = i
	}
	for j := 0; j < end; j++ {
		switch rest[j] {
		case '=', '{', '}', '[', ']', '"':
			return "", ""
		}
	}
	if end == 0 {
		return "", ""
	}
	class = rest[:end]
	if i >= 0 {
		fields = rest[i+1:]
	}
	return class, fields
}

// deriveSubtypes builds the sorted, de-duplicated subtype set: the class
// token plus, if present and a plain string, the "reason" field's value.
func deriveSubtypes(class string, fields TupleValue) []string {
	set := map[string]struct{}{class: {}}
	if v, ok := fields["reason"]; ok {
		if s, ok := v.(StringValue); ok {
			set[string(s)] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sortStrings(out)
	return out
}

// knownFieldShapes gives the expected primitive shape for field names
// whose typed accessors (Frame, BreakpointField, ThreadID, ...) in
// domain.go assume a specific Value kind. A well-structured payload whose
// value for one of these fields violates its expected shape becomes an
// unknown record, never a partial one -- checked once, here, at parse
// time, rather than left for each typed accessor to silently report
// ok=false.
var knownFieldShapes = map[string]func(Value) bool{
	"frame":           isTupleShape,
	"bkpt":            isTupleShape,
	"thread-id":       isStringShape,
	"core":            isStringShape,
	"stopped-threads": isStoppedThreadsShape,
}

func isTupleShape(v Value) bool {
	_, ok := v.(TupleValue)
	return ok
}

func isStringShape(v Value) bool {
	_, ok := v.(StringValue)
	return ok
}

func isStoppedThreadsShape(v Value) bool {
	switch val := v.(type) {
	case StringValue:
		return true
	case ListValue:
		for _, item := range val {
			if _, ok := item.(StringValue); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// fieldShapesOK reports whether every field present in fields that
// knownFieldShapes recognizes matches its expected shape. Fields
// knownFieldShapes has no opinion on are left to the record's own
// Subtypes/Class-driven handling.
func fieldShapesOK(fields TupleValue) bool {
	for name, check := range knownFieldShapes {
		if v, ok := fields[name]; ok && !check(v) {
			return false
		}
	}
	return true
}

func sortStrings(s []string) {
	// small, allocation-free insertion sort: subtype sets are always tiny.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

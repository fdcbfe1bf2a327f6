package mi

import (
	"sort"
	"strconv"
	"strings"
)

// RecordType is the primary classification of a parsed MI line.
type RecordType string

const (
	TypeResult        RecordType = "result"
	TypeAsyncExec     RecordType = "async-exec"
	TypeAsyncStatus   RecordType = "async-status"
	TypeAsyncNotify   RecordType = "async-notify"
	TypeStreamConsole RecordType = "stream-console"
	TypeStreamTarget  RecordType = "stream-target"
	TypeStreamLog     RecordType = "stream-log"
	TypeUnknown       RecordType = "unknown"
)

func typeForSymbol(sym byte) RecordType {
	switch sym {
	case '^':
		return TypeResult
	case '*':
		return TypeAsyncExec
	case '+':
		return TypeAsyncStatus
	case '=':
		return TypeAsyncNotify
	case '~':
		return TypeStreamConsole
	case '@':
		return TypeStreamTarget
	case '&':
		return TypeStreamLog
	default:
		return TypeUnknown
	}
}

func (t RecordType) IsStream() bool {
	switch t {
	case TypeStreamConsole, TypeStreamTarget, TypeStreamLog:
		return true
	}
	return false
}

// Record is an immutable, hashable parsed GDB/MI line.
type Record struct {
	Type RecordType

	// Class is the leading class/reason token that followed the symbol
	// directly (e.g. "done", "error", "stopped", "running"). It is always
	// itself a member of Subtypes.
	Class string

	// Subtypes is the full subtype set (class token plus, for async
	// records, the value of an optional "reason" field such as
	// "breakpoint-hit"), sorted and de-duplicated for deterministic
	// equality and hashing. Order carries no meaning; use Class to recover
	// the wire's leading token.
	Subtypes []string

	Token  *int64
	Fields TupleValue

	// Text is set only for stream records and unknown records; it carries
	// the stream message or the original malformed line verbatim.
	Text string
}

// HasSubtype reports whether name is one of the record's subtypes.
func (r Record) HasSubtype(name string) bool {
	for _, s := range r.Subtypes {
		if s == name {
			return true
		}
	}
	return false
}

// FieldNames returns the sorted field-name list, the third component of
// the aggregated-record shape key.
func (r Record) FieldNames() []string {
	return FieldNames(r.Fields)
}

// Equal reports equality over (type, subtypes, token, field tuple), the
// contract that lets records serve as map keys for classification.
func (r Record) Equal(o Record) bool {
	if r.Type != o.Type {
		return false
	}
	if !stringsEqual(r.Subtypes, o.Subtypes) {
		return false
	}
	if !tokenEqual(r.Token, o.Token) {
		return false
	}
	if r.Type.IsStream() || r.Type == TypeUnknown {
		return r.Text == o.Text
	}
	return r.Fields.Equal(o.Fields)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tokenEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// CacheKey returns a string key consistent with Equal, suitable for use as
// (part of) a map key.
func (r Record) CacheKey() string {
	var b strings.Builder
	b.WriteString(string(r.Type))
	b.WriteByte('|')
	b.WriteString(strings.Join(r.Subtypes, ","))
	b.WriteByte('|')
	if r.Token != nil {
		b.WriteString(strconv.FormatInt(*r.Token, 10))
	}
	b.WriteByte('|')
	if r.Type.IsStream() || r.Type == TypeUnknown {
		b.WriteString(r.Text)
	} else {
		b.WriteString(r.Fields.Format())
	}
	return b.String()
}

// Format re-serializes the record into MI wire syntax; reparsing it must
// yield an equal record (the parser's round-trip property).
func (r Record) Format() string {
	var b strings.Builder
	if r.Token != nil {
		b.WriteString(strconv.FormatInt(*r.Token, 10))
	}
	b.WriteByte(symbolForType(r.Type))
	if r.Type.IsStream() {
		b.WriteString(StringValue(r.Text).Format())
		return b.String()
	}
	if r.Type == TypeUnknown {
		return r.Text
	}
	b.WriteString(r.Class)
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Fields[k].Format())
	}
	return b.String()
}

func symbolForType(t RecordType) byte {
	switch t {
	case TypeResult:
		return '^'
	case TypeAsyncExec:
		return '*'
	case TypeAsyncStatus:
		return '+'
	case TypeAsyncNotify:
		return '='
	case TypeStreamConsole:
		return '~'
	case TypeStreamTarget:
		return '@'
	case TypeStreamLog:
		return '&'
	default:
		return '?'
	}
}

// String implements fmt.Stringer for debugging/logging.
func (r Record) String() string {
	return r.Format()
}

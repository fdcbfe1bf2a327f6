package mi

import "github.com/mitchellh/mapstructure"

// Frame mirrors GDB/MI's frame tuple, e.g.
// frame={addr="0x...",func="main",file="a.c",line="10"}.
type Frame struct {
	Addr string `mapstructure:"addr"`
	Func string `mapstructure:"func"`
	File string `mapstructure:"file"`
	Line string `mapstructure:"line"`
	Core string `mapstructure:"core"`
}

// Breakpoint mirrors GDB/MI's bkpt tuple.
type Breakpoint struct {
	Number  string `mapstructure:"number"`
	Type    string `mapstructure:"type"`
	Enabled string `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Func    string `mapstructure:"func"`
	File    string `mapstructure:"file"`
	Line    string `mapstructure:"line"`
}

// Thread mirrors GDB/MI's thread-info-ish tuple as seen in stopped records.
type Thread struct {
	ID    string `mapstructure:"id"`
	State string `mapstructure:"state"`
}

// decodeDomain decodes a Value's Native() representation into a typed
// domain struct. A Value that isn't a tuple, or that doesn't decode
// cleanly, yields ok=false rather than a partially populated struct --
// the parser's "a malformed field never yields a partial record" rule
// extends to these convenience accessors.
func decodeDomain(v Value, out interface{}) bool {
	if v == nil {
		return false
	}
	tuple, ok := v.(TupleValue)
	if !ok {
		return false
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return false
	}
	if err := dec.Decode(tuple.Native()); err != nil {
		return false
	}
	return true
}

// Frame returns the record's typed frame field. The explicit "frame"
// field is authoritative; a "frame" subtype key is advisory only and
// never consulted.
func (r Record) Frame() (Frame, bool) {
	v, ok := r.Fields["frame"]
	if !ok {
		return Frame{}, false
	}
	var f Frame
	if !decodeDomain(v, &f) {
		return Frame{}, false
	}
	return f, true
}

// BreakpointField returns the record's typed bkpt field, if present.
func (r Record) BreakpointField() (Breakpoint, bool) {
	v, ok := r.Fields["bkpt"]
	if !ok {
		return Breakpoint{}, false
	}
	var b Breakpoint
	if !decodeDomain(v, &b) {
		return Breakpoint{}, false
	}
	return b, true
}

// ThreadID returns the record's "thread-id" field as a string, if present.
func (r Record) ThreadID() (string, bool) {
	v, ok := r.Fields["thread-id"]
	if !ok {
		return "", false
	}
	s, ok := v.(StringValue)
	return string(s), ok
}

// StoppedThreads returns the record's "stopped-threads" field, which is
// either the literal string "all" or a list of thread-id strings.
func (r Record) StoppedThreads() ([]string, bool) {
	v, ok := r.Fields["stopped-threads"]
	if !ok {
		return nil, false
	}
	switch val := v.(type) {
	case StringValue:
		return []string{string(val)}, true
	case ListValue:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(StringValue)
			if !ok {
				return nil, false
			}
			out = append(out, string(s))
		}
		return out, true
	default:
		return nil, false
	}
}

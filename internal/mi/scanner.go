package mi

import (
	"bufio"
	"io"
	"strings"
)

// Scanner wraps a line-delimited GDB/MI byte stream, discarding the
// "(gdb)" terminator lines and yielding one Record per remaining logical
// line.
type Scanner struct {
	sc *bufio.Scanner
}

// NewScanner constructs a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Scanner{sc: sc}
}

// Next returns the next Record, or (Record{}, false) at end of stream. A
// scan error is surfaced by Err after Next returns false.
func (s *Scanner) Next() (Record, bool) {
	for s.sc.Scan() {
		line := strings.TrimRight(s.sc.Text(), "\r\n")
		if line == "" || line == "(gdb)" {
			continue
		}
		return Parse(line), true
	}
	return Record{}, false
}

// Err returns the first non-EOF error encountered by the underlying
// reader.
func (s *Scanner) Err() error { return s.sc.Err() }

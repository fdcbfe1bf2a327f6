package overlay

import (
	"errors"
	"sync"

	"github.com/tos-network/pgdb/internal/rankset"
	"github.com/tos-network/pgdb/internal/wire"
)

// errSessionClosed is returned once a session set is torn down; no
// further stream may be opened on it.
var errSessionClosed = errors.New("overlay: session set closed")

// StreamKind distinguishes the three stream shapes the overlay exposes.
type StreamKind int

const (
	StreamBroadcast StreamKind = iota
	StreamFrontendReceive
	StreamNarrowed
)

// Stream is an addressable message channel over the overlay. A narrowed
// stream additionally carries the Interval it was opened over.
type Stream struct {
	Kind   StreamKind
	Target rankset.Set // only meaningful for StreamNarrowed
	out    chan frameMsg
}

type frameMsg struct {
	kind wire.Kind
	msg  interface{}
}

// Send enqueues msg of kind k onto the stream. Once the stream's bounded
// buffer is full it blocks until the receiving loop drains an entry.
func (s *Stream) Send(k wire.Kind, msg interface{}) {
	s.out <- frameMsg{kind: k, msg: msg}
}

// Recv exposes the stream's receive side for the owning loop's poll step.
func (s *Stream) Recv() <-chan frameMsg { return s.out }

// SessionSet is the per-node registry of open streams: a single RWMutex
// around flat maps, safe for concurrent register/remove from multiple
// goroutines even though each loop itself is single-threaded.
type SessionSet struct {
	lock     sync.RWMutex
	closed   bool
	narrowed map[string]*Stream

	broadcast *Stream
	frontend  *Stream
}

// NewSessionSet constructs a SessionSet with its two always-present
// streams already open.
func NewSessionSet(bufSize int) *SessionSet {
	return &SessionSet{
		narrowed:  make(map[string]*Stream),
		broadcast: &Stream{Kind: StreamBroadcast, out: make(chan frameMsg, bufSize)},
		frontend:  &Stream{Kind: StreamFrontendReceive, out: make(chan frameMsg, bufSize)},
	}
}

// Broadcast returns the shared broadcast stream.
func (s *SessionSet) Broadcast() *Stream { return s.broadcast }

// FrontendReceive returns the shared front-end-receive stream.
func (s *SessionSet) FrontendReceive() *Stream { return s.frontend }

// OpenNarrowed opens (or returns the existing) narrowed stream over
// target, keyed by the target Interval's string form so repeated requests
// for the same Interval share one stream.
func (s *SessionSet) OpenNarrowed(target rankset.Set, bufSize int) (*Stream, error) {
	key := target.String()

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil, errSessionClosed
	}
	if st, ok := s.narrowed[key]; ok {
		return st, nil
	}
	st := &Stream{Kind: StreamNarrowed, Target: target, out: make(chan frameMsg, bufSize)}
	s.narrowed[key] = st
	return st, nil
}

// Close tears down the session set; no further narrowed stream may be
// opened afterward.
func (s *SessionSet) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
}

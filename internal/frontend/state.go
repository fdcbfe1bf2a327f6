package frontend

import (
	"errors"
	"sync"

	"github.com/tos-network/pgdb/internal/rankset"
)

// Phase is one state of the front-end state machine.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseRunning
	PhaseShutdown
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseRunning:
		return "running"
	case PhaseShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

var errNotAdmitted = errors.New("frontend: user input not yet admitted; join barrier unmet")

// JoinBarrier tracks joined-count vs expected-count from topology events;
// user commands are only admitted once join-count equals expected. Join is
// called from the transport loop while Satisfied is consulted from the
// input loop, so the count is mutex-guarded.
type JoinBarrier struct {
	mu       sync.Mutex
	expected int
	joined   map[string]bool
}

// NewJoinBarrier constructs a JoinBarrier expecting expected back-ends to
// join.
func NewJoinBarrier(expected int) *JoinBarrier {
	return &JoinBarrier{expected: expected, joined: make(map[string]bool)}
}

// Join records that host has joined (sent hello), returning whether the
// barrier is now satisfied.
func (b *JoinBarrier) Join(host string) (satisfied bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joined[host] = true
	return len(b.joined) >= b.expected
}

// Satisfied reports whether every expected back-end has joined.
func (b *JoinBarrier) Satisfied() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.joined) >= b.expected
}

// State is the front-end's own phase and target-Interval tracking; the
// transport and input loops each hold a pointer to the same State,
// synchronizing access through Lock/Unlock.
type State struct {
	Phase         Phase
	DefaultTarget rankset.Set // the unnarrowed target; a `proc <spec>` prefix overrides it per command
	lock          *ReentrantLock
}

// NewState constructs a State with the given full rank set as the default
// (unnarrowed) target.
func NewState(allRanks rankset.Set) *State {
	return &State{Phase: PhaseInit, DefaultTarget: allRanks, lock: NewReentrantLock()}
}

// AdmitInput transitions Init -> Running once the join barrier reports
// satisfied and hello has been broadcast; it is an error to admit input
// before that.
func (s *State) AdmitInput(owner interface{}, barrier *JoinBarrier) error {
	s.lock.Lock(owner)
	defer s.lock.Unlock(owner)
	if !barrier.Satisfied() {
		return errNotAdmitted
	}
	s.Phase = PhaseRunning
	return nil
}

// BeginShutdown transitions Running -> Shutdown on user-initiated quit.
func (s *State) BeginShutdown(owner interface{}) {
	s.lock.Lock(owner)
	defer s.lock.Unlock(owner)
	s.Phase = PhaseShutdown
}

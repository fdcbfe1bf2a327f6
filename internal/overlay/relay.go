package overlay

import (
	"time"

	"github.com/tos-network/pgdb/internal/arec"
	"github.com/tos-network/pgdb/internal/wire"
)

// Relay accumulates aggregated "out" records from its children and merges
// same-shape records pairwise before forwarding toward the root. Messages
// of any other kind pass through untouched in arrival order.
type Relay struct {
	childCount int
	barrier    time.Duration

	pending   map[string]*arec.AggregatedRecord // shape key -> accumulator
	heardFrom map[int]bool                      // child index -> seen this barrier
	passthru  []PassthruFrame
}

// PassthruFrame is one non-"out" message a Relay forwards verbatim: the raw
// gob-encoded payload wire.ReadMessage returned, not a decoded value, so a
// relay never needs to know the concrete Go type behind a Kind it merely
// relays -- it re-frames Payload with wire.Codec.Forward exactly as read.
type PassthruFrame struct {
	Kind    wire.Kind
	Payload []byte
}

// NewRelay constructs a Relay expecting childCount children and waiting at
// most barrier for all of them to report before forwarding whatever has
// accumulated.
func NewRelay(childCount int, barrier time.Duration) *Relay {
	return &Relay{
		childCount: childCount,
		barrier:    barrier,
		pending:    make(map[string]*arec.AggregatedRecord),
		heardFrom:  make(map[int]bool, childCount),
	}
}

// AcceptOut folds one child's aggregated record, from the given child
// index, into the relay's accumulator for the current barrier. It has no
// knowledge of whether rec arrived on a compressed frame, and the relay
// loop in cmd/pgdbrelay folds every out record through it, compressed or
// not.
func (r *Relay) AcceptOut(childIdx int, rec arec.AggregatedRecord) error {
	r.heardFrom[childIdx] = true
	key := rec.Classify()
	cur, ok := r.pending[key]
	if !ok {
		r.pending[key] = &rec
		return nil
	}
	merged, err := cur.Merge(rec)
	if err != nil {
		return err
	}
	r.pending[key] = &merged
	return nil
}

// AcceptPassthru queues a non-"out" message, identified by kind and its raw
// encoded payload, for forwarding in arrival order, unmodified.
func (r *Relay) AcceptPassthru(k wire.Kind, payload []byte) {
	r.passthru = append(r.passthru, PassthruFrame{Kind: k, Payload: payload})
}

// ReadyToFlush reports whether every expected child has reported for the
// current barrier.
func (r *Relay) ReadyToFlush() bool {
	return len(r.heardFrom) >= r.childCount
}

// Flush drains the accumulated aggregated records (resetting the barrier
// state) and the passthru queue, in that order; emitting aggregates
// before the passthru messages that arrived alongside them keeps a
// relay's output deterministic given deterministic input.
func (r *Relay) Flush() (records []arec.AggregatedRecord, passthru []PassthruFrame) {
	for _, rec := range r.pending {
		records = append(records, *rec)
	}
	passthru = r.passthru

	r.pending = make(map[string]*arec.AggregatedRecord)
	r.heardFrom = make(map[int]bool, r.childCount)
	r.passthru = nil
	return records, passthru
}

// Barrier returns the relay's configured flush timeout, the fallback
// trigger when a child never reports.
func (r *Relay) Barrier() time.Duration { return r.barrier }

package backend

import (
	"fmt"

	"github.com/tos-network/pgdb/internal/arec"
	"github.com/tos-network/pgdb/internal/mi"
	"github.com/tos-network/pgdb/internal/rankset"
	"github.com/tos-network/pgdb/internal/varobj"
	"github.com/tos-network/pgdb/internal/wire"
)

// Phase is one state of the back-end state machine.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseStartupAbsorbing
	PhaseRunning
	PhaseShutdown
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseStartupAbsorbing:
		return "startup-absorbing"
	case PhaseRunning:
		return "running"
	case PhaseShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Upward is the back-end's single outbound channel toward its relay/front-end.
type Upward interface {
	Send(k wire.Kind, msg interface{})
}

// Coordinator drives one back-end's cooperative loop: Init, then
// StartupAbsorbing until every assigned rank has reported stopped, then
// Running, ticking drain->classify->filter->tag->merge->send.
type Coordinator struct {
	Phase Phase

	localRanks    rankset.Set
	expectedCount int
	stoppedSeen   map[int]bool

	tokens  *TokenMap
	filters *FilterSet
	up      Upward

	absorbBatch map[string]*arec.AggregatedRecord
	outBatch    map[string]*arec.AggregatedRecord

	varTree *varobj.Tree
}

// NewCoordinator constructs a Coordinator responsible for localRanks, with
// outgoing traffic sent on up.
func NewCoordinator(localRanks rankset.Set, up Upward) *Coordinator {
	return &Coordinator{
		Phase:         PhaseInit,
		localRanks:    localRanks,
		expectedCount: localRanks.Count(),
		stoppedSeen:   make(map[int]bool),
		tokens:        NewTokenMap(localRanks),
		filters:       NewFilterSet(),
		up:            up,
		absorbBatch:   make(map[string]*arec.AggregatedRecord),
		outBatch:      make(map[string]*arec.AggregatedRecord),
		varTree:       varobj.NewTree(),
	}
}

// LocalRanks returns the rank set this Coordinator is responsible for.
func (c *Coordinator) LocalRanks() rankset.Set { return c.localRanks }

// Varprint performs the bounded varobj descent for dottedName against this
// back-end's local rank, using provider to issue the underlying
// var-create/var-list-children commands.
func (c *Coordinator) Varprint(provider varobj.Provider, dottedName string, limits varobj.Limits) (*varobj.VarObj, error) {
	return varobj.Explore(c.varTree, provider, dottedName, limits)
}

// VarUpdate refreshes the varobj tree against the debugger before a
// descent: every changelist entry the provider reports is applied to the
// local tree, deleting out-of-scope or type-changed nodes and updating
// values in place.
func (c *Coordinator) VarUpdate(provider *MIProvider) error {
	entries, err := provider.Update()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	varobj.ApplyChangelist(c.varTree, c.varTree.NameIndex(), entries)
	return nil
}

// Dispatch sends line through send (typically a gdbproc.Process.Send),
// recording the issuing rank against the assigned token so the result
// record is later tagged correctly by HandleRecord through the
// token->rank map. Back-ends responsible for more than one rank dispatch
// the same line once per call; since the default deployment assigns
// exactly one rank per back-end, the single-rank TokenMap entry this
// leaves behind is exact for the common case and only loses per-rank
// output tagging precision when rank_count > 1.
func (c *Coordinator) Dispatch(send func(string) (int64, error), line string, rank int) (int64, error) {
	tok, err := send(line)
	if err != nil {
		return 0, err
	}
	c.tokens.Record(tok, rank)
	return tok, nil
}

// EndInit transitions Init -> StartupAbsorbing once every attach/init
// command has been acknowledged.
func (c *Coordinator) EndInit() {
	if c.Phase == PhaseInit {
		c.Phase = PhaseStartupAbsorbing
	}
}

// Filter suppresses the given record subtypes, applied atomically with
// respect to HandleRecord.
func (c *Coordinator) Filter(subtypes ...string) { c.filters.Add(subtypes...) }

// Unfilter un-suppresses the given record subtypes.
func (c *Coordinator) Unfilter(subtypes ...string) { c.filters.Remove(subtypes...) }

// HandleRecord processes one MI record observed during the current phase:
// during StartupAbsorbing it folds into the absorb batch and watches for
// every local rank's stopped record; during Running it filters, tags and
// folds into the outgoing batch.
func (c *Coordinator) HandleRecord(rec mi.Record) error {
	switch c.Phase {
	case PhaseStartupAbsorbing:
		return c.absorb(rec)
	case PhaseRunning:
		return c.tick(rec)
	default:
		return nil
	}
}

func (c *Coordinator) absorb(rec mi.Record) error {
	ranks := c.tokens.RankFor(rec.Token)
	if err := foldInto(c.absorbBatch, rec, ranks); err != nil {
		return err
	}
	if rec.HasSubtype("stopped") {
		ranks.Each(func(r int) { c.stoppedSeen[r] = true })
	}
	if len(c.stoppedSeen) >= c.expectedCount {
		c.flushAbsorbBatch()
		c.Phase = PhaseRunning
	}
	return nil
}

func (c *Coordinator) flushAbsorbBatch() {
	for _, rec := range c.absorbBatch {
		c.up.Send(wire.KindOut, *rec)
	}
	c.absorbBatch = make(map[string]*arec.AggregatedRecord)
}

func (c *Coordinator) tick(rec mi.Record) error {
	if c.filters.Suppresses(rec) {
		return nil
	}
	ranks := c.tokens.RankFor(rec.Token)
	if err := foldInto(c.outBatch, rec, ranks); err != nil {
		return err
	}
	return nil
}

// FlushOutBatch sends whatever has accumulated in the outgoing batch and
// clears it, per the Running tick's "send when the batch is non-empty".
func (c *Coordinator) FlushOutBatch() {
	if len(c.outBatch) == 0 {
		return
	}
	for _, rec := range c.outBatch {
		c.up.Send(wire.KindOut, *rec)
	}
	c.outBatch = make(map[string]*arec.AggregatedRecord)
}

// Shutdown transitions to the Shutdown phase; callers drain pending
// output and close the GDB process afterward.
func (c *Coordinator) Shutdown() { c.Phase = PhaseShutdown }

func foldInto(batch map[string]*arec.AggregatedRecord, rec mi.Record, ranks rankset.Set) error {
	single := arec.NewForRanks(rec, ranks)
	key := single.Classify()
	cur, ok := batch[key]
	if !ok {
		batch[key] = &single
		return nil
	}
	merged, err := cur.Merge(single)
	if err != nil {
		return fmt.Errorf("backend: folding record into batch: %w", err)
	}
	batch[key] = &merged
	return nil
}

package wire

import "github.com/tos-network/pgdb/internal/rankset"

// CommandMsg addresses one debugger command line at a rank set; only
// commands and results carry a rank address. Broadcast marks the symbolic
// broadcast address, delivered everywhere without consulting the rank map.
type CommandMsg struct {
	Target    rankset.Set
	Broadcast bool
	Line      string
}

// HelloMsg announces one side's join to the other: a back-end's upward
// Hello carries the ranks it is locally responsible for, so the front-end
// can route rank-addressed commands to the right connection; the
// front-end's downward Hello (broadcast once the join barrier is
// satisfied) carries an empty Ranks and simply signals "input admitted."
type HelloMsg struct {
	Ranks rankset.Set
}

// FilterMsg updates a back-end's suppressed-subtype set, delivered as an
// ordinary broadcast message.
type FilterMsg struct {
	Subtypes []string
}

// KillMsg causes every targeted back-end to signal its attached inferiors
// and continue running.
type KillMsg struct{}

// DieMsg is fatal: the targeted back-end exits immediately.
type DieMsg struct{}

// QuitMsg is the broadcast debugger-exit command issued on user quit.
type QuitMsg struct{}

// VarprintMsg requests that each rank in Target perform the bounded
// varobj descent for the dotted name Name.
type VarprintMsg struct {
	Target rankset.Set
	Name   string
}

// VarprintResultMsg carries one rank's varprint result back upward: a
// gob-friendly flattened view of the resulting variable object (the
// varobj tree itself holds pointers unsuitable for the wire), or Err set
// with a human-readable Message on failure.
type VarprintResultMsg struct {
	Rank    int
	Name    string
	Err     bool
	Message string
	Nodes   []VarobjNodeMsg
}

// VarobjNodeMsg is one flattened node of a VarprintResultMsg's result
// tree: Path is the node's full dotted name, so the receiver can rebuild
// parent/child relationships without a pointer-based tree crossing gob.
type VarobjNodeMsg struct {
	Path          string
	Short         string
	Type          string
	Value         string
	HasValue      bool
	DisplayHint   string
	Dynamic       bool
	NumChildren   int
	ChildrenKnown bool
	MoreChildren  bool
}

// LoadFileMsg is a back-end's forwarded SBD load request, already accepted
// by its local policy predicate.
type LoadFileMsg struct {
	Path string
}

// FileDataMsg is the front-end's broadcast response to a LoadFileMsg: the
// file's bytes, read once and shared with every requester, or Err set if
// the read failed (the back-end then writes the sbd.ErrorToken sentinel).
type FileDataMsg struct {
	Path string
	Data []byte
	Err  bool
}

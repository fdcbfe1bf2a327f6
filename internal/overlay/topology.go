// Package overlay implements the tree-shaped transport: topology
// construction from a flat host list, rank addressing, relay-side
// aggregation, and the broadcast/front-end-receive/narrowed session
// abstractions the coordinator drives.
package overlay

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/tos-network/pgdb/internal/rankset"
)

var (
	// errBranchingFactor is returned if a non-positive branching factor is
	// requested; a tree with k ≤ 0 can never admit a leaf.
	errBranchingFactor = errors.New("overlay: branching factor must be positive")

	// errNoBackends is returned if topology is built over an empty host list.
	errNoBackends = errors.New("overlay: no back-end hosts given")

	// errHostRoleConflict is returned if the front-end host also appears in
	// the back-end host list.
	errHostRoleConflict = errors.New("overlay: front-end host may not also serve as a back-end")
)

// NodeKind distinguishes the three roles a Node can hold in the tree.
type NodeKind int

const (
	NodeFrontend NodeKind = iota
	NodeRelay
	NodeBackend
)

func (k NodeKind) String() string {
	switch k {
	case NodeFrontend:
		return "frontend"
	case NodeRelay:
		return "relay"
	case NodeBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// Node is one vertex of the overlay tree.
type Node struct {
	ID     uuid.UUID
	Kind   NodeKind
	Host   string
	Parent *Node
	// Ranks is the set of debugger ranks this node is responsible for: the
	// full set at the front-end, the union of its backend descendants at a
	// relay, and the back-end's own assigned ranks at a leaf.
	Ranks rankset.Set

	// ListenAddr is the real dialable address this node's relay hop is
	// bound to, filled in once the hop is actually running (Host is only
	// the logical "relay-N" identity RankMap keys on; ListenAddr is what a
	// child -- another relay, or a back-end -- dials as its --parent).
	// Empty at the front-end (its listener address is known independently
	// via cfg.ListenAddr) and at back-ends (which never accept children).
	ListenAddr string
}

func newNode(kind NodeKind, host string) *Node {
	return &Node{ID: uuid.New(), Kind: kind, Host: host}
}

// Topology is the realized overlay tree: a front-end root, a
// branching-factor-k tree of relays, and one back-end leaf per host.
type Topology struct {
	Root     *Node
	Relays   []*Node
	Backends []*Node

	// RankMap maps rank -> the relay (or, for k such that a relay directly
	// parents the back-end, that relay) address a front-end must subscribe
	// to in order to reach that rank.
	RankMap map[int]string
}

// Build partitions backendHosts into a branching-factor-k tree of relays
// beneath a front-end rooted at frontendHost: minimum relay count is
// ceil(|hosts|/k), and no host may double as both front-end and back-end.
func Build(frontendHost string, backendHosts []string, k int) (*Topology, error) {
	if k <= 0 {
		return nil, errBranchingFactor
	}
	if len(backendHosts) == 0 {
		return nil, errNoBackends
	}
	for _, h := range backendHosts {
		if h == frontendHost {
			return nil, errHostRoleConflict
		}
	}

	root := newNode(NodeFrontend, frontendHost)
	ranks := make([]int, len(backendHosts))
	for i := range ranks {
		ranks[i] = i
	}
	root.Ranks = rankset.FromList(ranks)

	relayCount := int(math.Ceil(float64(len(backendHosts)) / float64(k)))
	relays := make([]*Node, relayCount)
	for i := range relays {
		relays[i] = newNode(NodeRelay, fmt.Sprintf("relay-%d", i))
		relays[i].Parent = root
	}

	backends := make([]*Node, len(backendHosts))
	rankMap := make(map[int]string, len(backendHosts))
	relayRanks := make([]rankset.Set, len(relays))
	for rank, host := range backendHosts {
		relay := relays[rank/k]
		be := newNode(NodeBackend, host)
		be.Parent = relay
		be.Ranks = rankset.FromList([]int{rank})
		backends[rank] = be
		rankMap[rank] = relay.Host
		relayRanks[rank/k] = relayRanks[rank/k].Union(be.Ranks)
	}
	for i, relay := range relays {
		relay.Ranks = relayRanks[i]
	}

	return &Topology{
		Root:     root,
		Relays:   relays,
		Backends: backends,
		RankMap:  rankMap,
	}, nil
}

// ChildCount returns the number of direct children (back-ends, for the
// single-tier tree Build constructs) a relay node fans out to, i.e. the
// number of "hello"s that relay hop must hear before its heard-from-every-
// child aggregation barrier is satisfied.
func (t *Topology) ChildCount(relay *Node) int {
	n := 0
	for _, be := range t.Backends {
		if be.Parent == relay {
			n++
		}
	}
	return n
}

// DialAddr returns the live dial address a child should connect to in
// order to reach the node whose logical Host is host: the relay's own
// ListenAddr if one has registered under that name and is running, or
// ("", false) if no such relay hop is up yet.
func (t *Topology) DialAddr(host string) (string, bool) {
	for _, r := range t.Relays {
		if r.Host == host && r.ListenAddr != "" {
			return r.ListenAddr, true
		}
	}
	return "", false
}

// RelaysFor narrows an Interval to the minimal set of relay addresses
// covering it.
func (t *Topology) RelaysFor(target rankset.Set) []string {
	seen := map[string]bool{}
	var out []string
	target.Each(func(rank int) {
		relay, ok := t.RankMap[rank]
		if !ok || seen[relay] {
			return
		}
		seen[relay] = true
		out = append(out, relay)
	})
	return out
}

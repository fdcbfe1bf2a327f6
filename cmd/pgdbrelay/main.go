// Command pgdbrelay is one tree-overlay relay hop: spawned by pgdbfe
// between itself and a group of back-ends, it accumulates aggregated
// "out" records from its children until either every child has reported or
// its barrier elapses, merges same-shape records, and forwards the result
// (and every other message kind, unmodified and in arrival order) toward
// its parent.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/pgdb/internal/arec"
	"github.com/tos-network/pgdb/internal/cliflags"
	"github.com/tos-network/pgdb/internal/overlay"
	"github.com/tos-network/pgdb/internal/pgdbconfig"
	"github.com/tos-network/pgdb/internal/pgdblog"
	"github.com/tos-network/pgdb/internal/rankset"
	"github.com/tos-network/pgdb/internal/wire"
)

var app = &cli.App{
	Name:   "pgdbrelay",
	Usage:  "internal tree-overlay relay hop (spawned by pgdbfe)",
	Flags:  cliflags.RelayFlags,
	Action: run,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// childConn is one accepted downward connection, tagged with the ranks its
// hello announced and the index its "out" records are tracked under.
type childConn struct {
	conn  net.Conn
	idx   int
	ranks rankset.Set
}

// upFrame is one decoded-but-not-yet-unmarshaled message read from a child.
type upFrame struct {
	kind    wire.Kind
	payload []byte
	from    *childConn
}

// downFrame is one decoded-but-not-yet-unmarshaled message read from the
// parent connection.
type downFrame struct {
	kind    wire.Kind
	payload []byte
}

func run(c *cli.Context) error {
	cfg := pgdbconfig.Defaults
	if path := c.String("config"); path != "" {
		loaded, err := pgdbconfig.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	log := pgdblog.New("component", "relay")

	parentAddr := c.String("parent")
	parentConn, err := net.Dial("tcp", parentAddr)
	if err != nil {
		return fmt.Errorf("dialing parent %s: %w", parentAddr, err)
	}
	defer parentConn.Close()

	ln, err := net.Listen("tcp", c.String("listen"))
	if err != nil {
		return fmt.Errorf("listening on %s: %w", c.String("listen"), err)
	}
	defer ln.Close()

	// Print the handshake line pgdbfe's spawner reads to learn our
	// ephemeral listen address, then never touch stdout again.
	fmt.Printf("RELAY_LISTEN %s\n", ln.Addr().String())
	_ = os.Stdout.Sync()

	childCount := c.Int("children")
	barrier := c.Duration("barrier")
	if barrier <= 0 {
		barrier = cfg.RelayBarrier
	}
	log.Info("relay hop up", "parent", parentAddr, "listen", ln.Addr().String(), "children", childCount, "barrier", barrier)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	codec := wire.NewCodec(wire.Config{SplitThreshold: cfg.SplitThreshold, CompressionThreshold: cfg.CompressionThreshold})

	l := &relayLoop{
		log:        log,
		codec:      codec,
		parent:     parentConn,
		relay:      overlay.NewRelay(childCount, barrier),
		childCount: childCount,
		newConnCh:  make(chan *childConn, childCount+1),
		upCh:       make(chan upFrame, 256),
		downCh:     make(chan downFrame, 64),
	}

	go l.acceptLoop(ln)
	go l.readParentLoop()

	l.run(ctx)
	return nil
}

// relayLoop is the relay's single cooperative loop: it owns all child and
// parent I/O and all aggregation, mirroring pgdbfe's transport.
type relayLoop struct {
	log    *pgdblog.Logger
	codec  *wire.Codec
	parent net.Conn
	relay  *overlay.Relay

	childCount int
	children   []*childConn

	helloRanks rankset.Set
	helloCount int
	helloSent  bool

	newConnCh chan *childConn
	upCh      chan upFrame
	downCh    chan downFrame
}

func (l *relayLoop) acceptLoop(ln net.Listener) {
	idx := 0
	for {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		cc := &childConn{conn: c, idx: idx}
		idx++
		l.newConnCh <- cc
		go l.readChildLoop(cc)
	}
}

func (l *relayLoop) readChildLoop(cc *childConn) {
	for {
		k, payload, err := l.codec.ReadMessage(cc.conn)
		if err != nil {
			return
		}
		l.upCh <- upFrame{kind: k, payload: payload, from: cc}
	}
}

func (l *relayLoop) readParentLoop() {
	defer close(l.downCh)
	for {
		k, payload, err := l.codec.ReadMessage(l.parent)
		if err != nil {
			return
		}
		l.downCh <- downFrame{kind: k, payload: payload}
	}
}

func (l *relayLoop) run(ctx context.Context) {
	flushTick := time.NewTicker(l.relay.Barrier())
	defer flushTick.Stop()

	for {
		select {
		case cc := <-l.newConnCh:
			l.children = append(l.children, cc)

		case uf := <-l.upCh:
			l.handleUp(uf)

		case df, ok := <-l.downCh:
			if !ok {
				l.shutdown(wire.KindDie, wire.DieMsg{})
				return
			}
			if l.handleDown(df) {
				return
			}

		case <-flushTick.C:
			l.maybeFlush()

		case <-ctx.Done():
			l.shutdown(wire.KindQuit, wire.QuitMsg{})
			return
		}
	}
}

func (l *relayLoop) handleUp(uf upFrame) {
	switch uf.kind {
	case wire.KindHello:
		var msg wire.HelloMsg
		if err := wire.Unmarshal(uf.payload, &msg); err != nil {
			l.log.Error("decoding hello frame", "err", err)
			return
		}
		uf.from.ranks = msg.Ranks
		l.helloRanks = l.helloRanks.Union(msg.Ranks)
		l.helloCount++
		if l.helloCount >= l.childCount && !l.helloSent {
			l.helloSent = true
			if err := l.codec.Encode(l.parent, wire.KindHello, wire.HelloMsg{Ranks: l.helloRanks}); err != nil {
				l.log.Error("forwarding combined hello", "err", err)
			}
		}

	case wire.KindOut:
		var rec arec.AggregatedRecord
		if err := wire.Unmarshal(uf.payload, &rec); err != nil {
			l.log.Error("decoding aggregated record", "err", err)
			return
		}
		if err := l.relay.AcceptOut(uf.from.idx, rec); err != nil {
			l.log.Error("merging aggregated record at relay", "err", err)
			return
		}
		if l.relay.ReadyToFlush() {
			l.flush()
		}

	default:
		l.relay.AcceptPassthru(uf.kind, uf.payload)
	}
}

// handleDown forwards one downward frame to every connected child,
// unmodified, relying on the same "the receiver filters again" redundancy
// broadcastTargeted's doc comment describes: a relay narrows nothing,
// since narrowing requires decoding a message this hop has no reason to
// understand. It reports whether the relay should shut down afterward.
func (l *relayLoop) handleDown(df downFrame) bool {
	for _, cc := range l.children {
		if err := l.codec.Forward(cc.conn, df.kind, df.payload); err != nil {
			l.log.Error("forwarding frame downward", "kind", df.kind.String(), "err", err)
		}
	}
	return df.kind == wire.KindQuit || df.kind == wire.KindDie
}

// maybeFlush is the barrier-timer tick: whatever has accumulated is
// flushed even if a child never reports, so one lagging rank never stalls
// the whole subtree. A flush with nothing pending is a no-op.
func (l *relayLoop) maybeFlush() {
	l.flush()
}

func (l *relayLoop) flush() {
	records, passthru := l.relay.Flush()
	for _, rec := range records {
		if err := l.codec.Encode(l.parent, wire.KindOut, rec); err != nil {
			l.log.Error("forwarding aggregated record upward", "err", err)
		}
	}
	for _, pf := range passthru {
		if err := l.codec.Forward(l.parent, pf.Kind, pf.Payload); err != nil {
			l.log.Error("forwarding passthru frame upward", "kind", pf.Kind.String(), "err", err)
		}
	}
}

// shutdown flushes any remaining accumulated state and forwards a final
// terminal message to every child before the relay process exits, so a
// lost parent connection (or an operator interrupt) cascades down the
// subtree instead of leaving it stranded.
func (l *relayLoop) shutdown(k wire.Kind, msg interface{}) {
	l.flush()
	for _, cc := range l.children {
		if err := l.codec.Encode(cc.conn, k, msg); err != nil {
			l.log.Error("forwarding terminal frame downward", "kind", k.String(), "err", err)
		}
	}
}

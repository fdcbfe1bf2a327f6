// Command pgdbfe is the pgdb front-end: it launches (or attaches to) a
// back-end process on every rank of a parallel job, assembles them into
// an overlay tree, and drives an interactive REPL against the whole job
// at once.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/pgdb/internal/arec"
	"github.com/tos-network/pgdb/internal/cliflags"
	"github.com/tos-network/pgdb/internal/frontend"
	"github.com/tos-network/pgdb/internal/metrics"
	"github.com/tos-network/pgdb/internal/overlay"
	"github.com/tos-network/pgdb/internal/pgdbconfig"
	"github.com/tos-network/pgdb/internal/pgdblog"
	"github.com/tos-network/pgdb/internal/rankset"
	"github.com/tos-network/pgdb/internal/sbd"
	"github.com/tos-network/pgdb/internal/wire"
)

var app = &cli.App{
	Name:                 "pgdbfe",
	Usage:                "parallel GDB front-end",
	Flags:                cliflags.FrontendFlags,
	Action:               run,
	EnableBashCompletion: true,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// backendConn is one accepted overlay-tree connection -- a relay hop, or a
// back-end directly when no relay tier sits between it and the front-end
// (e.g. a single-relay deployment too small to need more than one hop) --
// tagged with the ranks its hello announced once it arrives.
type backendConn struct {
	conn  net.Conn
	ranks rankset.Set
}

// upFrame is one decoded-but-not-yet-unmarshaled message read from a
// back-end connection.
type upFrame struct {
	kind    wire.Kind
	payload []byte
	from    *backendConn
}

func run(c *cli.Context) error {
	cfg := pgdbconfig.Defaults
	configPath := c.String("config")
	if configPath != "" {
		loaded, err := pgdbconfig.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if h := c.String("host"); h != "" {
		cfg.Host = h
	}
	if l := c.String("launcher"); l != "" {
		cfg.Launcher = l
	}
	if c.Bool("local") {
		cfg.Local = true
	}
	if c.Bool("sbd") {
		cfg.SBD = true
	}
	if la := c.String("listen"); la != "" {
		cfg.ListenAddr = la
	}

	log := pgdblog.New("component", "frontend")
	log.Info("starting pgdb front-end", "launcher", cfg.Launcher, "host", cfg.Host, "local", cfg.Local)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backendHosts, err := resolveBackendHosts(c, cfg)
	if err != nil {
		return err
	}

	topo, err := overlay.Build(cfg.Host, backendHosts, cfg.RelayBranchingFactor)
	if err != nil {
		return fmt.Errorf("building overlay topology: %w", err)
	}
	allRanks := rankset.FromRange(0, len(backendHosts)-1)
	log.Info("overlay topology built", "relays", len(topo.Relays), "backends", len(topo.Backends))

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.ListenAddr, err)
	}
	defer ln.Close()
	log.Info("listening for relays", "addr", ln.Addr().String())

	relayHops, err := spawnRelayHops(topo, ln.Addr().String(), configPath, cfg, log)
	if err != nil {
		return fmt.Errorf("spawning relay tier: %w", err)
	}
	defer stopRelayHops(relayHops, log)
	logRankRouting(topo, log)

	state := frontend.NewState(allRanks)
	// Interposing a relay tier means the front-end now accepts exactly one
	// connection per relay hop, each announcing the union of its subtree's
	// ranks in a single combined hello, rather than one per back-end.
	barrier := frontend.NewJoinBarrier(len(topo.Relays))
	history, err := frontend.NewHistory(cfg.HistoryLength)
	if err != nil {
		return fmt.Errorf("allocating history: %w", err)
	}
	renderer := frontend.NewRenderer()

	t := &transport{
		log:          log,
		codec:        wire.NewCodec(wire.Config{SplitThreshold: cfg.SplitThreshold, CompressionThreshold: cfg.CompressionThreshold}),
		state:        state,
		barrier:      barrier,
		history:      history,
		renderer:     renderer,
		dedup:        sbd.NewDedup(4 << 20),
		metrics:      metrics.NewRegistry(),
		rankConns:    make(map[int]*backendConn),
		batch:        make(map[string]*arec.AggregatedRecord),
		admitted:     make(chan struct{}),
		newConnCh:    make(chan *backendConn, len(topo.Relays)),
		connClosedCh: make(chan *backendConn, len(topo.Relays)),
		upCh:         make(chan upFrame, 256),
		cmdCh:        make(chan frontend.Command),
		quitCh:       make(chan struct{}),
	}

	go acceptLoop(ln, t)

	repl := frontend.NewREPL("(pgdb) ")
	defer repl.Close()

	go t.run(ctx)

	select {
	case <-t.admitted:
	case <-ctx.Done():
		return nil
	}
	if err := state.AdmitInput(repl, barrier); err != nil {
		return fmt.Errorf("joining overlay tree: %w", err)
	}
	log.Info("join barrier satisfied, admitting input")

	for {
		select {
		case <-ctx.Done():
			state.BeginShutdown(repl)
			close(t.quitCh)
			return nil
		default:
		}

		cmd, err := repl.ReadCommand(allRanks)
		if err == frontend.ErrEmptyCommand {
			continue
		}
		if err != nil {
			state.BeginShutdown(repl)
			close(t.quitCh)
			return nil
		}
		if cmd.Verb == "quit" || cmd.Verb == "exit" {
			state.BeginShutdown(repl)
			close(t.quitCh)
			return nil
		}
		if cmd.Verb == "expand" {
			printExpand(renderer, history, cmd)
			continue
		}
		if cmd.Verb == "help" {
			repl.Printf("built-ins: filter unfilter block unblock varprint varassign expand kill quit help stats\n")
			continue
		}
		if cmd.Verb == "stats" {
			printStats(repl, t.metrics)
			continue
		}
		t.cmdCh <- cmd
	}
}

// acceptLoop accepts back-end connections until the listener closes and
// registers each with the transport loop.
func acceptLoop(ln net.Listener, t *transport) {
	for {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		bc := &backendConn{conn: c}
		t.newConnCh <- bc
		go readConnLoop(c, bc, t)
	}
}

func readConnLoop(c net.Conn, bc *backendConn, t *transport) {
	for {
		k, payload, err := t.codec.ReadMessage(c)
		if err != nil {
			t.connClosedCh <- bc
			return
		}
		t.upCh <- upFrame{kind: k, payload: payload, from: bc}
	}
}

// transport is the front-end's transport loop: it owns all overlay I/O,
// fed by the input loop (the REPL in main's outer loop) over cmdCh. Each
// connection it accepts is a relay hop's single combined stream for its
// whole subtree (spawnRelayHops below), so the merge here is only ever
// across relay-already-merged records -- the merge is associative, so the
// fold comes out the same either way.
type transport struct {
	log      *pgdblog.Logger
	codec    *wire.Codec
	state    *frontend.State
	barrier  *frontend.JoinBarrier
	history  *frontend.History
	renderer *frontend.Renderer
	dedup    *sbd.Dedup
	metrics  *metrics.Registry

	conns     []*backendConn
	rankConns map[int]*backendConn

	batch map[string]*arec.AggregatedRecord

	admitted     chan struct{}
	admittedOnce bool

	newConnCh    chan *backendConn
	connClosedCh chan *backendConn
	upCh         chan upFrame
	cmdCh        chan frontend.Command
	quitCh       chan struct{}
}

func (t *transport) run(ctx context.Context) {
	flushTick := time.NewTicker(200 * time.Millisecond)
	defer flushTick.Stop()

	for {
		select {
		case bc := <-t.newConnCh:
			t.conns = append(t.conns, bc)

		case bc := <-t.connClosedCh:
			if t.removeConn(bc) {
				return
			}

		case uf := <-t.upCh:
			t.handleUp(uf)

		case cmd := <-t.cmdCh:
			t.dispatch(cmd)

		case <-flushTick.C:
			t.flushBatch()

		case <-t.quitCh:
			t.broadcastRaw(wire.KindQuit, wire.QuitMsg{})
			t.awaitChildrenExit(2 * time.Second)
			return

		case <-ctx.Done():
			return
		}
	}
}

// awaitChildrenExit blocks until every child stream has closed in
// response to the quit broadcast, or the grace period elapses, whichever
// comes first.
func (t *transport) awaitChildrenExit(grace time.Duration) {
	deadline := time.NewTimer(grace)
	defer deadline.Stop()
	for len(t.conns) > 0 {
		select {
		case bc := <-t.connClosedCh:
			t.removeConn(bc)
		case <-deadline.C:
			t.log.Warn("grace period elapsed with children still connected", "remaining", len(t.conns))
			return
		}
	}
}

// removeConn drops a failed child stream and proceeds with the survivors,
// reporting true -- transport shutdown -- only once the last child is gone.
func (t *transport) removeConn(bc *backendConn) bool {
	for i, c := range t.conns {
		if c == bc {
			t.conns = append(t.conns[:i], t.conns[i+1:]...)
			break
		}
	}
	for rank, c := range t.rankConns {
		if c == bc {
			delete(t.rankConns, rank)
		}
	}
	t.log.Warn("overlay child stream closed", "peer", bc.conn.RemoteAddr().String(), "ranks", bc.ranks.String(), "remaining", len(t.conns))
	return len(t.conns) == 0
}

func (t *transport) handleUp(uf upFrame) {
	switch uf.kind {
	case wire.KindHello:
		var msg wire.HelloMsg
		if err := wire.Unmarshal(uf.payload, &msg); err != nil {
			t.log.Error("decoding hello frame", "err", err)
			return
		}
		uf.from.ranks = msg.Ranks
		msg.Ranks.Each(func(r int) { t.rankConns[r] = uf.from })
		t.metrics.Gauge("ranks_joined").Set(int64(len(t.rankConns)))
		if satisfied := t.barrier.Join(uf.from.conn.RemoteAddr().String()); satisfied && !t.admittedOnce {
			t.admittedOnce = true
			// downward hello: the signal that the tree is complete and
			// every back-end is considered live.
			t.broadcastRaw(wire.KindHello, wire.HelloMsg{})
			close(t.admitted)
		}

	case wire.KindOut:
		var rec arec.AggregatedRecord
		if err := wire.Unmarshal(uf.payload, &rec); err != nil {
			t.log.Error("decoding aggregated record", "err", err)
			return
		}
		t.foldIntoBatch(rec)

	case wire.KindVarprintResult:
		var msg wire.VarprintResultMsg
		if err := wire.Unmarshal(uf.payload, &msg); err != nil {
			t.log.Error("decoding varprint-result frame", "err", err)
			return
		}
		t.printVarprintResult(msg)

	case wire.KindLoadFile:
		var msg wire.LoadFileMsg
		if err := wire.Unmarshal(uf.payload, &msg); err != nil {
			t.log.Error("decoding load-file frame", "err", err)
			return
		}
		t.handleLoadFile(msg)

	default:
		t.log.Warn("unhandled upward frame kind", "kind", uf.kind.String())
	}
}

func (t *transport) foldIntoBatch(rec arec.AggregatedRecord) {
	key := rec.Classify()
	cur, ok := t.batch[key]
	if !ok {
		t.batch[key] = &rec
		return
	}
	merged, err := cur.Merge(rec)
	if err != nil {
		t.log.Error("merging aggregated record at front-end", "err", err)
		return
	}
	t.batch[key] = &merged
}

// flushBatch prints the flush view -- one majority-representative line
// per aggregated record -- and retains the batch in history, where
// `expand` can later enumerate the equivalence classes the flush view
// deliberately withholds.
func (t *transport) flushBatch() {
	if len(t.batch) == 0 {
		return
	}
	records := make([]arec.AggregatedRecord, 0, len(t.batch))
	for _, rec := range t.batch {
		records = append(records, *rec)
	}
	t.renderer.PrintRecords(records)
	t.history.Push(records)
	t.metrics.Counter("batches_received").Inc()
	t.batch = make(map[string]*arec.AggregatedRecord)
}

func (t *transport) printVarprintResult(msg wire.VarprintResultMsg) {
	if msg.Err {
		t.renderer.PrintError(fmt.Sprintf("varprint %s (rank %d): %s", msg.Name, msg.Rank, msg.Message))
		return
	}
	for _, n := range msg.Nodes {
		fmt.Printf("[rank %d] %s = %s (%s)\n", msg.Rank, n.Path, n.Value, n.Type)
	}
}

// handleLoadFile implements the front-end half of the SBD handshake:
// de-duplicate concurrent requests for the same path, read it once, and
// broadcast the bytes (or an error flag) to every back-end.
func (t *transport) handleLoadFile(msg wire.LoadFileMsg) {
	if !t.dedup.ClaimOrJoin(msg.Path) {
		return
	}
	data, err := os.ReadFile(msg.Path)
	reply := wire.FileDataMsg{Path: msg.Path}
	if err != nil {
		t.log.Error("reading SBD-requested file", "path", msg.Path, "err", err)
		reply.Err = true
	} else {
		reply.Data = data
	}
	t.broadcastRaw(wire.KindFileData, reply)
	t.dedup.Forget(msg.Path)
}

// dispatch translates one REPL command into wire traffic.
func (t *transport) dispatch(cmd frontend.Command) {
	target := cmd.Target
	if !cmd.Narrowed {
		target = t.state.DefaultTarget
	}

	switch cmd.Verb {
	case "filter":
		t.broadcastTargeted(wire.KindFilter, wire.FilterMsg{Subtypes: cmd.Args}, target)
	case "unfilter":
		t.broadcastTargeted(wire.KindUnfilter, wire.FilterMsg{Subtypes: cmd.Args}, target)
	case "block", "unblock":
		// Locally scopes future unnarrowed commands away from (or back to)
		// the given ranks; no network traffic, since only the front-end's
		// own default-target bookkeeping is affected. See DESIGN.md.
		if len(cmd.Args) == 0 {
			return
		}
		spec, err := rankset.Parse(cmd.Args[0], t.state.DefaultTarget)
		if err != nil {
			t.renderer.PrintError(err.Error())
			return
		}
		if cmd.Verb == "block" {
			t.state.DefaultTarget = t.state.DefaultTarget.Difference(spec)
		} else {
			t.state.DefaultTarget = t.state.DefaultTarget.Union(spec)
		}
	case "varprint":
		if len(cmd.Args) == 0 {
			t.renderer.PrintError("varprint: missing dotted name")
			return
		}
		t.broadcastTargeted(wire.KindVarprint, wire.VarprintMsg{Target: target, Name: cmd.Args[0]}, target)
	case "varassign":
		// shell grammar is `varassign <name> = <value>`; MI's -var-assign
		// takes no "=" between name and expression.
		args := make([]string, 0, len(cmd.Args))
		for _, a := range cmd.Args {
			if a != "=" {
				args = append(args, a)
			}
		}
		if len(args) < 2 {
			t.renderer.PrintError("varassign: usage: varassign <name> = <value>")
			return
		}
		line := "-var-assign " + strings.Join(args, " ")
		t.broadcastTargeted(wire.KindCommand, wire.CommandMsg{Target: target, Line: line}, target)
	case "kill":
		t.broadcastTargeted(wire.KindKill, wire.KillMsg{}, target)
	default:
		line := cmd.Verb
		if len(cmd.Args) > 0 {
			line = line + " " + strings.Join(cmd.Args, " ")
		}
		t.broadcastTargeted(wire.KindCommand, wire.CommandMsg{Target: target, Line: line}, target)
	}
}

// broadcastTargeted sends msg of kind k to every connection whose local
// ranks intersect target; each back-end filters again on receipt (the
// same "any subsequent relay re-checks" redundancy the tree-overlay
// transport tolerates), but this narrows the common case to only the
// connections that could possibly care.
func (t *transport) broadcastTargeted(k wire.Kind, msg interface{}, target rankset.Set) {
	sent := make(map[net.Conn]bool)
	for _, bc := range t.conns {
		if !bc.ranks.Intersection(target).IsEmpty() && !sent[bc.conn] {
			sent[bc.conn] = true
			t.send(bc, k, msg)
		}
	}
}

func (t *transport) broadcastRaw(k wire.Kind, msg interface{}) {
	for _, bc := range t.conns {
		t.send(bc, k, msg)
	}
}

func (t *transport) send(bc *backendConn, k wire.Kind, msg interface{}) {
	if err := t.codec.Encode(bc.conn, k, msg); err != nil {
		t.log.Error("sending frame downward", "kind", k.String(), "peer", bc.conn.RemoteAddr().String(), "err", err)
	}
}

// printStats prints the ambient metrics registry's current snapshot
// alongside a host/process resource sample, the front-end's "stats"
// builtin verb.
func printStats(repl *frontend.REPL, reg *metrics.Registry) {
	snap := reg.Snapshot()
	for name, v := range snap.Counters {
		repl.Printf("%s: %d\n", name, v)
	}
	for name, v := range snap.Gauges {
		repl.Printf("%s: %d\n", name, v)
	}
	sys := metrics.SampleSystem()
	repl.Printf("memory: %d/%d bytes available, cpu time: %dcs\n",
		sys.AvailableMemoryBytes, sys.TotalMemoryBytes, sys.CPUTimeCentiseconds)
}

// printExpand replays history entry n (or the latest one), printing each
// equivalence class across every shape recorded in that batch.
func printExpand(renderer *frontend.Renderer, history *frontend.History, cmd frontend.Command) {
	idx, ok := history.Latest()
	if len(cmd.Args) > 0 {
		if n, err := strconv.Atoi(cmd.Args[0]); err == nil {
			idx, ok = n, true
		}
	}
	if !ok {
		renderer.PrintError("expand: history is empty")
		return
	}
	batch, found := history.Get(idx)
	if !found {
		renderer.PrintError(fmt.Sprintf("expand: no such history entry %d", idx))
		return
	}
	var classes []arec.EquivalenceClass
	for _, rec := range batch.Records {
		classes = append(classes, rec.EquivalenceClasses()...)
	}
	renderer.PrintTable(classes)
}

// resolveBackendHosts expands the launch specification into the concrete
// list of back-end hosts this run will attach to: an explicit --topology
// descriptor's leaves when one is given, a single in-process back-end for
// --local, or whatever the launcher reports for --pid / -a.
func resolveBackendHosts(c *cli.Context, cfg pgdbconfig.Config) ([]string, error) {
	if path := c.String("topology"); path != "" {
		return hostsFromDescriptor(path)
	}
	if cfg.Local {
		return []string{"127.0.0.1"}, nil
	}
	if pid := c.Int("pid"); pid != 0 {
		return []string{fmt.Sprintf("launcher-pid-%d", pid)}, nil
	}
	args := c.StringSlice("a")
	if len(args) == 0 {
		return nil, fmt.Errorf("no launch target given: pass --pid, -a, --topology, or --local")
	}
	return launchJob(cfg.Launcher, args)
}

// hostsFromDescriptor reads a topology descriptor file and returns its
// leaf hosts, stripping the ":N" node-instance suffix each descriptor
// address carries.
func hostsFromDescriptor(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening topology descriptor: %w", err)
	}
	defer f.Close()
	edges, err := overlay.ParseDescriptor(f)
	if err != nil {
		return nil, err
	}
	leaves := overlay.Leaves(edges)
	if len(leaves) == 0 {
		return nil, fmt.Errorf("topology descriptor %s lists no leaf hosts", path)
	}
	hosts := make([]string, len(leaves))
	for i, l := range leaves {
		if j := strings.LastIndexByte(l, ':'); j > 0 {
			l = l[:j]
		}
		hosts[i] = l
	}
	return hosts, nil
}

// relayHop is one spawned pgdbrelay subprocess, one per node of
// topo.Relays: the front-end dials nothing toward it directly, but owns
// its lifetime, so every hop is torn down alongside the front-end itself.
type relayHop struct {
	node *overlay.Node
	cmd  *exec.Cmd
}

// spawnRelayHops launches one pgdbrelay subprocess per node of topo.Relays,
// wiring the relay tier into the live command/response path: each hop
// dials frontendAddr as its parent and listens on an ephemeral port whose
// real address it reports back over a one-line stdout handshake, since
// --listen's default can't be known until the OS actually binds it. The
// resolved address is recorded on the corresponding overlay.Node so
// logRankRouting (and, in a future launcher integration, back-end
// placement) can route each rank to the right hop.
func spawnRelayHops(topo *overlay.Topology, frontendAddr, configPath string, cfg pgdbconfig.Config, log *pgdblog.Logger) ([]*relayHop, error) {
	relayBin, err := relayBinaryPath()
	if err != nil {
		return nil, err
	}

	hops := make([]*relayHop, 0, len(topo.Relays))
	for _, relay := range topo.Relays {
		childCount := topo.ChildCount(relay)
		args := []string{
			"--parent", frontendAddr,
			"--listen", "127.0.0.1:0",
			"--children", strconv.Itoa(childCount),
			"--barrier", cfg.RelayBarrier.String(),
		}
		if configPath != "" {
			args = append(args, "--config", configPath)
		}
		cmd := exec.Command(relayBin, args...)
		cmd.Stderr = os.Stderr

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			stopRelayHops(hops, log)
			return nil, fmt.Errorf("piping %s stdout: %w", relay.Host, err)
		}
		if err := cmd.Start(); err != nil {
			stopRelayHops(hops, log)
			return nil, fmt.Errorf("starting relay hop %s: %w", relay.Host, err)
		}

		addr, err := readRelayHandshake(stdout)
		if err != nil {
			cmd.Process.Kill()
			stopRelayHops(hops, log)
			return nil, fmt.Errorf("relay hop %s handshake: %w", relay.Host, err)
		}
		go io.Copy(io.Discard, stdout)

		relay.ListenAddr = addr
		log.Info("relay hop spawned", "relay", relay.Host, "listen", addr, "children", childCount)
		hops = append(hops, &relayHop{node: relay, cmd: cmd})
	}
	return hops, nil
}

// readRelayHandshake reads pgdbrelay's single "RELAY_LISTEN <addr>" line
// off its stdout pipe and returns addr.
func readRelayHandshake(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading handshake: %w", err)
	}
	const prefix = "RELAY_LISTEN "
	if !strings.HasPrefix(line, prefix) {
		return "", fmt.Errorf("unexpected handshake line %q", line)
	}
	return strings.TrimSpace(strings.TrimPrefix(line, prefix)), nil
}

// relayBinaryPath locates the pgdbrelay binary: alongside pgdbfe's own
// executable if present there (the normal installed-together layout), or
// on $PATH otherwise.
func relayBinaryPath() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "pgdbrelay")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("pgdbrelay")
	if err != nil {
		return "", fmt.Errorf("locating pgdbrelay binary: %w", err)
	}
	return path, nil
}

// stopRelayHops signals every spawned relay hop to exit and waits for it,
// logging (but not failing on) anything that doesn't shut down cleanly.
func stopRelayHops(hops []*relayHop, log *pgdblog.Logger) {
	for _, hop := range hops {
		if hop.cmd.Process == nil {
			continue
		}
		if err := hop.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			hop.cmd.Process.Kill()
		}
	}
	for _, hop := range hops {
		if err := hop.cmd.Wait(); err != nil {
			log.Warn("relay hop exited uncleanly", "relay", hop.node.Host, "err", err)
		}
	}
}

// logRankRouting logs, for every rank, the relay dial address a back-end
// launched on that rank should be given as --parent. Back-end process
// placement itself remains the launcher's responsibility (out of scope
// per DESIGN.md), so this is the hand-off point between the two: an
// operator or launcher integration reads this mapping to know which
// relay hop (rather than the front-end) each back-end must now dial.
func logRankRouting(topo *overlay.Topology, log *pgdblog.Logger) {
	ranks := make([]int, 0, len(topo.RankMap))
	for rank := range topo.RankMap {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	for _, rank := range ranks {
		addr, ok := topo.DialAddr(topo.RankMap[rank])
		if !ok {
			log.Warn("no live relay for rank", "rank", rank)
			continue
		}
		log.Info("rank routed through relay", "rank", rank, "parent", addr)
	}
}

// launchJob is the resource-manager launch path (srun by default). It
// invokes no launcher and reports no hosts: it always returns an error
// naming the launcher and its arguments.
func launchJob(launcher string, args []string) ([]string, error) {
	return nil, fmt.Errorf("launching via %s with args %v is not implemented in this environment", launcher, args)
}

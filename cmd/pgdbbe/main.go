// Command pgdbbe is the pgdb back-end: one instance runs on every rank of
// the job under debug, supervising a local GDB child process, folding its
// MI output into aggregated records, and forwarding them upward through
// the overlay tree.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/pgdb/internal/backend"
	"github.com/tos-network/pgdb/internal/cliflags"
	"github.com/tos-network/pgdb/internal/gdbproc"
	"github.com/tos-network/pgdb/internal/metrics"
	"github.com/tos-network/pgdb/internal/mi"
	"github.com/tos-network/pgdb/internal/pgdbconfig"
	"github.com/tos-network/pgdb/internal/pgdblog"
	"github.com/tos-network/pgdb/internal/rankset"
	"github.com/tos-network/pgdb/internal/sbd"
	"github.com/tos-network/pgdb/internal/varobj"
	"github.com/tos-network/pgdb/internal/wire"
)

var app = &cli.App{
	Name:   "pgdbbe",
	Usage:  "parallel GDB back-end (runs one per rank, launched by pgdbfe)",
	Flags:  cliflags.BackendFlags,
	Action: run,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// upwardConn sends frames to the parent relay or front-end over a single
// long-lived TCP connection.
type upwardConn struct {
	conn  net.Conn
	codec *wire.Codec
	log   *pgdblog.Logger
}

func (u *upwardConn) Send(k wire.Kind, msg interface{}) {
	if err := u.codec.Encode(u.conn, k, msg); err != nil {
		u.log.Error("sending frame upward", "kind", k.String(), "err", err)
	}
}

// ackTracker records which command tokens have been acknowledged by a
// result record, consulted by gdbproc.Retrier's polling loop while the
// goroutine reading GDB's stdout keeps marking tokens concurrently.
type ackTracker struct {
	mu    sync.Mutex
	acked map[int64]bool
}

func newAckTracker() *ackTracker { return &ackTracker{acked: make(map[int64]bool)} }

func (t *ackTracker) mark(tok int64) {
	t.mu.Lock()
	t.acked[tok] = true
	t.mu.Unlock()
}

func (t *ackTracker) check(tok int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acked[tok]
}

// chanRecordSource adapts a channel of mi.Record into the blocking
// Next()-style reader backend.MIProvider expects, so the varprint
// provider can share the single goroutine reading GDB's stdout rather
// than racing it for ownership of proc.Next().
type chanRecordSource struct{ ch <-chan mi.Record }

func (c chanRecordSource) Next() (mi.Record, bool) {
	rec, ok := <-c.ch
	return rec, ok
}

// downFrame is one decoded-but-not-yet-unmarshaled message read from the
// downward (parent -> back-end) connection.
type downFrame struct {
	kind    wire.Kind
	payload []byte
}

// backendLoop holds the single cooperative loop's state: GDB pipe,
// overlay connection, SBD side channel and varobj provider.
type backendLoop struct {
	log   *pgdblog.Logger
	coord *backend.Coordinator
	proc  *gdbproc.Process
	up    *upwardConn

	provider *backend.MIProvider
	metrics  *metrics.Registry

	region         *sbd.Region
	sem            *sbd.Semaphore
	policy         *sbd.Policy
	pendingSBDPath string

	varobjMaxDepth int
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

	log := pgdblog.New("component", "backend", "rank", c.Int("rank"))
	localRanks := rankset.FromRange(c.Int("rank"), c.Int("rank")+c.Int("rank-count")-1)

	parent := c.String("parent")
	if parent == "" {
		return fmt.Errorf("pgdbbe: --parent is required")
	}
	conn, err := net.Dial("tcp", parent)
	if err != nil {
		return fmt.Errorf("dialing parent %s: %w", parent, err)
	}
	defer conn.Close()

	codec := wire.NewCodec(wire.Config{SplitThreshold: cfg.SplitThreshold, CompressionThreshold: cfg.CompressionThreshold})
	up := &upwardConn{conn: conn, codec: codec, log: log}
	coord := backend.NewCoordinator(localRanks, up)
	coord.Filter(cfg.DefaultFilters...)

	gdbPath := cfg.GDBPath
	if gdbPath == "" {
		gdbPath = "gdb"
	}
	proc, err := gdbproc.Start(gdbPath)
	if err != nil {
		return fmt.Errorf("starting gdb: %w", err)
	}

	loop := &backendLoop{
		log: log, coord: coord, proc: proc, up: up,
		metrics:        metrics.NewRegistry(),
		varobjMaxDepth: cfg.VarobjMaxDepth,
	}
	if cfg.SBD {
		region, sem, policy, err := openSBD(cfg, c.Int("rank"))
		if err != nil {
			log.Error("opening SBD side channel, continuing without it", "err", err)
		} else {
			defer region.Close()
			defer sem.Close()
			loop.region, loop.sem, loop.policy = region, sem, policy
		}
	}

	recordsCh := make(chan mi.Record, 256)
	tracker := newAckTracker()
	go func() {
		defer close(recordsCh)
		for {
			rec, ok := proc.Next()
			if !ok {
				return
			}
			if rec.Token != nil {
				tracker.mark(*rec.Token)
			}
			recordsCh <- rec
		}
	}()

	downCh := make(chan downFrame, 64)
	go func() {
		defer close(downCh)
		for {
			k, payload, err := codec.ReadMessage(conn)
			if err != nil {
				log.Info("downward connection closed", "err", err)
				return
			}
			downCh <- downFrame{kind: k, payload: payload}
		}
	}()

	up.Send(wire.KindHello, wire.HelloMsg{Ranks: localRanks})

	retrier := gdbproc.NewRetrier(proc, cfg.CommandRetryRate)
	if err := runInit(context.Background(), retrier, tracker, localRanks); err != nil {
		return fmt.Errorf("back-end init: %w", err)
	}
	coord.EndInit()
	log.Info("back-end entering startup-absorbing phase", "ranks", localRanks.String())

	loop.provider = backend.NewMIProvider(proc, chanRecordSource{ch: recordsCh}, func(rec mi.Record) {
		if err := coord.HandleRecord(rec); err != nil {
			log.Error("folding varprint-interleaved record", "err", err)
		}
	})

	sbdTick := time.NewTicker(50 * time.Millisecond)
	defer sbdTick.Stop()
	defer func() {
		snap := loop.metrics.Snapshot()
		log.Info("final metrics", "counters", snap.Counters)
	}()

	for {
		select {
		case rec, ok := <-recordsCh:
			if !ok {
				// GDB's stdout closed: the debugger itself is gone.
				coord.Shutdown()
				return proc.Wait()
			}
			loop.metrics.Counter("parse_loop_ticks").Inc()
			if err := coord.HandleRecord(rec); err != nil {
				log.Error("handling MI record", "err", err)
				continue
			}
			if coord.Phase == backend.PhaseRunning {
				coord.FlushOutBatch()
			}

		case df, ok := <-downCh:
			if !ok {
				// Parent stream lost: self-terminate after asking GDB to
				// exit, killing it if it outlives the grace period.
				coord.Shutdown()
				return stopGDB(proc, 2*time.Second)
			}
			if loop.handle(df) {
				coord.Shutdown()
				stopGDB(proc, 2*time.Second)
				return nil
			}

		case <-sbdTick.C:
			loop.pollSBD()
		}
	}
}

// stopGDB asks GDB to exit and waits for it, forcibly killing the process
// if it hasn't gone away within grace.
func stopGDB(proc *gdbproc.Process, grace time.Duration) error {
	proc.Send("-gdb-exit")
	killTimer := time.AfterFunc(grace, func() { proc.Kill() })
	defer killTimer.Stop()
	return proc.Wait()
}

func openSBD(cfg pgdbconfig.Config, rank int) (*sbd.Region, *sbd.Semaphore, *sbd.Policy, error) {
	regionPath := cfg.SBDRegionPath
	if regionPath == "" {
		regionPath = fmt.Sprintf("/tmp/pgdb-sbd-%d.region", rank)
	}
	semPath := cfg.SBDSemaphorePath
	if semPath == "" {
		semPath = fmt.Sprintf("/tmp/pgdb-sbd-%d.lock", rank)
	}
	region, err := sbd.OpenRegion(regionPath, cfg.SBDMaxPayloadBytes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sbd region: %w", err)
	}
	sem, err := sbd.OpenSemaphore(semPath)
	if err != nil {
		region.Close()
		return nil, nil, nil, fmt.Errorf("sbd semaphore: %w", err)
	}
	policy, err := sbd.NewPolicy(cfg.SBDPolicyExpr, cfg.SBDKnownExecutables)
	if err != nil {
		region.Close()
		sem.Close()
		return nil, nil, nil, fmt.Errorf("sbd policy: %w", err)
	}
	return region, sem, policy, nil
}

// runInit drives the back-end Init phase: set pretty-printing, non-stop,
// async target, no pagination, and add one inferior per extra rank this
// back-end is responsible for. Every command is retried until its result
// record is observed.
func runInit(ctx context.Context, retrier *gdbproc.Retrier, tracker *ackTracker, localRanks rankset.Set) error {
	initCmds := []string{
		"-gdb-set non-stop on",
		"-gdb-set mi-async on",
		"-gdb-set pagination off",
		"-enable-pretty-printing",
	}
	for _, cmd := range initCmds {
		if _, err := retrier.UntilAcked(ctx, cmd, tracker.check); err != nil {
			return err
		}
	}
	for i := 1; i < localRanks.Count(); i++ {
		if _, err := retrier.UntilAcked(ctx, "-add-inferior", tracker.check); err != nil {
			return err
		}
	}
	return nil
}

// pollSBD performs one non-blocking poll of the SBD region, forwarding an
// accepted request upward and skipping the poll entirely while one is in
// flight.
func (l *backendLoop) pollSBD() {
	if l.region == nil || l.pendingSBDPath != "" {
		return
	}
	path, ok, err := sbd.PollBackend(l.region, l.sem, l.policy)
	if err != nil {
		l.log.Error("polling SBD region", "err", err)
		return
	}
	if ok {
		l.pendingSBDPath = path
		l.metrics.Counter("sbd_requests").Inc()
		l.up.Send(wire.KindLoadFile, wire.LoadFileMsg{Path: path})
	}
}

// handle dispatches one message read from the parent connection; it
// returns true if the back-end should shut down.
func (l *backendLoop) handle(df downFrame) bool {
	localRanks := l.coord.LocalRanks()

	switch df.kind {
	case wire.KindCommand:
		var msg wire.CommandMsg
		if err := wire.Unmarshal(df.payload, &msg); err != nil {
			l.log.Error("decoding command frame", "err", err)
			return false
		}
		if !msg.Broadcast && msg.Target.Intersection(localRanks).IsEmpty() {
			return false
		}
		rank, _ := localRanks.Smallest()
		if _, err := l.coord.Dispatch(l.proc.Send, msg.Line, rank); err != nil {
			l.log.Error("dispatching command", "line", msg.Line, "err", err)
		}

	case wire.KindFilter:
		var msg wire.FilterMsg
		if err := wire.Unmarshal(df.payload, &msg); err != nil {
			l.log.Error("decoding filter frame", "err", err)
			return false
		}
		l.coord.Filter(msg.Subtypes...)

	case wire.KindUnfilter:
		var msg wire.FilterMsg
		if err := wire.Unmarshal(df.payload, &msg); err != nil {
			l.log.Error("decoding unfilter frame", "err", err)
			return false
		}
		l.coord.Unfilter(msg.Subtypes...)

	case wire.KindVarprint:
		l.handleVarprint(df)

	case wire.KindKill:
		l.handleKill()

	case wire.KindDie:
		l.proc.Kill()
		return true

	case wire.KindQuit:
		return true

	case wire.KindFileData:
		l.handleFileData(df)

	case wire.KindHello:
		// front-end's barrier-satisfied broadcast; no action required.

	default:
		l.log.Warn("unhandled downward frame kind", "kind", df.kind.String())
	}
	return false
}

// handleVarprint refreshes the varobj tree via var-update, runs the
// bounded descent against this back-end's rank, and replies with a
// flattened VarprintResultMsg.
func (l *backendLoop) handleVarprint(df downFrame) {
	var msg wire.VarprintMsg
	if err := wire.Unmarshal(df.payload, &msg); err != nil {
		l.log.Error("decoding varprint frame", "err", err)
		return
	}
	localRanks := l.coord.LocalRanks()
	if msg.Target.Intersection(localRanks).IsEmpty() {
		return
	}
	rank, _ := localRanks.Smallest()

	if err := l.coord.VarUpdate(l.provider); err != nil {
		l.log.Warn("applying var-update changelist", "err", err)
	}

	limits := varobj.Limits{MaxDepth: l.varobjMaxDepth}
	v, err := l.coord.Varprint(l.provider, msg.Name, limits)
	if err != nil {
		l.up.Send(wire.KindVarprintResult, wire.VarprintResultMsg{
			Rank: rank, Name: msg.Name, Err: true, Message: err.Error(),
		})
		return
	}
	l.up.Send(wire.KindVarprintResult, wire.VarprintResultMsg{
		Rank:  rank,
		Name:  msg.Name,
		Nodes: backend.FlattenVarObj(v, msg.Name),
	})
}

// handleFileData writes an SBD reply into the region and releases the
// pending-request marker. File-data arrives as a broadcast, so a frame
// for a path this back-end never requested is ignored rather than written
// over an unrelated pending request.
func (l *backendLoop) handleFileData(df downFrame) {
	var msg wire.FileDataMsg
	if err := wire.Unmarshal(df.payload, &msg); err != nil {
		l.log.Error("decoding file-data frame", "err", err)
		return
	}
	if l.region == nil || l.pendingSBDPath == "" || msg.Path != l.pendingSBDPath {
		return
	}
	data := msg.Data
	if msg.Err {
		data = nil
	}
	if err := sbd.RespondBackend(l.region, l.sem, data); err != nil {
		l.log.Error("responding to SBD request", "err", err)
	}
	l.pendingSBDPath = ""
}

// handleKill stops every attached inferior while keeping the back-end
// itself running; the user may need one further step command per inferior
// for the debugger to observe the stop. The portable MI equivalent of
// signalling every inferior without knowing the platform's native PID
// table is an interrupt sent to the whole inferior set; a real
// per-inferior SIGTERM requires shelling out to kill(2) against each
// inferior's PID once -thread-info reports it.
func (l *backendLoop) handleKill() {
	if _, err := l.proc.Send("-exec-interrupt --all"); err != nil {
		l.log.Error("interrupting inferiors for kill", "err", err)
	}
}

// Package pgdblog is pgdb's structured logger: leveled Logger values
// carrying a fixed set of key/value context pairs, a handler interface
// records are dispatched through, and a Crit level that captures its
// caller's stack.
package pgdblog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
	"github.com/go-stack/stack"
)

// Lvl is a log level, ordered least to most severe.
type Lvl int

const (
	LvlDebug Lvl = iota
	LvlInfo
	LvlWarn
	LvlError
	LvlCrit
)

func (l Lvl) String() string {
	switch l {
	case LvlDebug:
		return "DEBUG"
	case LvlInfo:
		return "INFO"
	case LvlWarn:
		return "WARN"
	case LvlError:
		return "ERROR"
	case LvlCrit:
		return "CRIT"
	default:
		return "UNKNOWN"
	}
}

// Record is one emitted log line.
type Record struct {
	Time time.Time
	Lvl  Lvl
	Msg  string
	Ctx  []interface{} // alternating key, value
	Call stack.Call    // only populated for LvlCrit
}

// Handler consumes Records; Logger.write fans out to one Handler.
type Handler interface {
	Log(r Record) error
}

// Logger is a leveled logger carrying a fixed context of key/value pairs;
// New(ctx...) derives a child Logger with additional context appended.
type Logger struct {
	ctx     []interface{}
	handler Handler
}

var (
	root   = &Logger{handler: StreamHandler(os.Stderr)}
	rootMu sync.RWMutex
)

// Root returns the package-level root logger.
func Root() *Logger {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return root
}

// SetHandler replaces the root logger's handler.
func SetHandler(h Handler) {
	rootMu.Lock()
	defer rootMu.Unlock()
	root.handler = h
}

// New returns a child Logger with ctx appended to the parent's context.
func (l *Logger) New(ctx ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &Logger{ctx: merged, handler: l.handler}
}

func (l *Logger) write(lvl Lvl, msg string, ctx []interface{}) {
	r := Record{Time: time.Now(), Lvl: lvl, Msg: msg, Ctx: append(append([]interface{}{}, l.ctx...), ctx...)}
	if lvl == LvlCrit {
		r.Call = stack.Caller(2)
	}
	l.handler.Log(r)
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }

// Crit logs at LvlCrit, capturing the caller's stack frame, then exits
// the process.
func (l *Logger) Crit(msg string, ctx ...interface{}) {
	l.write(LvlCrit, msg, ctx)
	os.Exit(1)
}

// streamHandler writes logfmt-encoded records to an io.Writer.
type streamHandler struct {
	mu sync.Mutex
	w  io.Writer
}

// StreamHandler constructs a Handler writing logfmt lines to w.
func StreamHandler(w io.Writer) Handler { return &streamHandler{w: w} }

func (h *streamHandler) Log(r Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	enc := logfmt.NewEncoder(h.w)
	pairs := []interface{}{"t", r.Time.Format(time.RFC3339), "lvl", r.Lvl.String(), "msg", r.Msg}
	pairs = append(pairs, r.Ctx...)
	if r.Lvl == LvlCrit {
		pairs = append(pairs, "caller", fmt.Sprintf("%+v", r.Call))
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := enc.EncodeKeyval(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return enc.EndRecord()
}

// Convenience package-level wrappers over Root().
func Debug(msg string, ctx ...interface{}) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { Root().Error(msg, ctx...) }
func New(ctx ...interface{}) *Logger       { return Root().New(ctx...) }

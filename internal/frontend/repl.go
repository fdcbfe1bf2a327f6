package frontend

import (
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/tos-network/pgdb/internal/rankset"
)

// REPL drives the front-end input loop: a line-oriented shell with
// history and basic completion.
type REPL struct {
	state  *liner.State
	prompt string
}

// NewREPL constructs a REPL with the given prompt string (e.g. "(pgdb) ").
func NewREPL(prompt string) *REPL {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	l.SetCompleter(completer)
	return &REPL{state: l, prompt: prompt}
}

// Close releases the underlying terminal state.
func (r *REPL) Close() error { return r.state.Close() }

var completions = []string{
	"filter", "unfilter", "block", "unblock",
	"varprint", "varassign", "expand", "kill", "quit", "help", "stats", "proc",
}

func completer(line string) []string {
	var out []string
	for _, c := range completions {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// ReadCommand blocks for one line of input, appends it to history and
// parses it via ParseLine. io.EOF is returned verbatim on Ctrl-D.
func (r *REPL) ReadCommand(allRanks rankset.Set) (Command, error) {
	line, err := r.state.Prompt(r.prompt)
	if err != nil {
		if err == liner.ErrPromptAborted {
			return Command{}, io.EOF
		}
		return Command{}, err
	}
	if strings.TrimSpace(line) == "" {
		return Command{}, ErrEmptyCommand
	}
	r.state.AppendHistory(line)
	return ParseLine(line, allRanks)
}

// Printf writes formatted output above the prompt.
func (r *REPL) Printf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

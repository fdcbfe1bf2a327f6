// Package frontend implements the front-end's two cooperating loops (the
// transport loop owning overlay I/O and aggregation, and the input loop
// owning the user shell) and the REPL, history and rendering they share.
package frontend

import (
	"errors"
	"strings"

	"github.com/tos-network/pgdb/internal/rankset"
)

// ErrEmptyCommand is returned for a blank input line.
var ErrEmptyCommand = errors.New("frontend: empty command")

// Command is one parsed shell input line: an optional `proc <spec>`
// narrowing prefix plus the remaining verb and arguments.
type Command struct {
	Target   rankset.Set // zero value (IsEmpty) means "use the session default"
	Narrowed bool
	Verb     string
	Args     []string
}

// ParseLine parses one REPL input line: an optional `proc <spec>` prefix
// narrows the command's target Interval, where allRanks is consulted to
// resolve "all" and "-1".
func ParseLine(line string, allRanks rankset.Set) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	if fields[0] == "proc" {
		if len(fields) < 3 {
			return Command{}, errors.New("frontend: \"proc\" requires a rank-spec and a command")
		}
		target, err := rankset.Parse(fields[1], allRanks)
		if err != nil {
			return Command{}, err
		}
		return Command{Target: target, Narrowed: true, Verb: fields[2], Args: fields[3:]}, nil
	}

	return Command{Verb: fields[0], Args: fields[1:]}, nil
}

// builtinVerbs are the verbs the shell handles itself; anything else is
// routed to the debugger command table.
var builtinVerbs = map[string]bool{
	"filter": true, "unfilter": true, "block": true, "unblock": true,
	"varprint": true, "varassign": true, "expand": true,
	"kill": true, "quit": true, "help": true, "stats": true,
}

// IsBuiltin reports whether verb is one of the shell's own built-ins
// rather than a debugger command to dispatch through.
func IsBuiltin(verb string) bool { return builtinVerbs[verb] }

package frontend

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/tos-network/pgdb/internal/arec"
)

// Renderer prints equivalence classes to the user's terminal, falling
// back to plain (uncolored) output when stdout is not a TTY.
type Renderer struct {
	out       io.Writer
	colorized bool
}

// NewRenderer constructs a Renderer writing to os.Stdout, auto-detecting
// color support.
func NewRenderer() *Renderer {
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return &Renderer{out: colorable.NewColorableStdout(), colorized: true}
	}
	return &Renderer{out: os.Stdout, colorized: false}
}

// NewPlainRenderer constructs an uncolored Renderer writing to w, for
// output that is captured rather than shown on a terminal.
func NewPlainRenderer(w io.Writer) *Renderer {
	return &Renderer{out: w, colorized: false}
}

var rankLabel = color.New(color.FgCyan, color.Bold)

// PrintRecords is the flush view: exactly one line per aggregated record,
// its majority representative tagged with the record's full rank
// Interval. Minority values stay hidden here; `expand` enumerates them
// per equivalence class. Records print in ascending order of their
// smallest rank so repeated flushes of the same shapes read stably.
func (r *Renderer) PrintRecords(records []arec.AggregatedRecord) {
	sorted := append([]arec.AggregatedRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool {
		a, _ := sorted[i].Ranks.Smallest()
		b, _ := sorted[j].Ranks.Smallest()
		return a < b
	})

	for _, rec := range sorted {
		label := fmt.Sprintf("[%s]", rec.Ranks.String())
		if r.colorized {
			label = rankLabel.Sprint(label)
		}
		fmt.Fprintf(r.out, "%s %s\n", label, rec.Representative().Format())
	}
}

// PrintTable renders classes as a table (rank Interval, record text),
// used by `expand` to lay out a whole historical batch at once.
func (r *Renderer) PrintTable(classes []arec.EquivalenceClass) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"ranks", "record"})
	table.SetAutoWrapText(false)

	sorted := append([]arec.EquivalenceClass(nil), classes...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Ranks.Count() > sorted[j].Ranks.Count()
	})
	for _, c := range sorted {
		table.Append([]string{c.Ranks.String(), c.Representative.Format()})
	}
	table.Render()
}

// PrintError prints msg in red when the terminal supports it.
func (r *Renderer) PrintError(msg string) {
	if r.colorized {
		fmt.Fprintln(r.out, color.New(color.FgRed).Sprint(strings.TrimSpace(msg)))
		return
	}
	fmt.Fprintln(r.out, strings.TrimSpace(msg))
}

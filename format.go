package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// statusf prints an informational message to stdout unless quiet mode is on.
func statusf(quiet bool, format string, args ...any) {
	if quiet {
		return
	}

	fmt.Printf(format, args...)
}

// formatSize renders a byte count for humans, e.g. "1.5 MB".
func formatSize(n int64) string {
	if n < 0 {
		return "-"
	}

	return humanize.Bytes(uint64(n))
}

// printTable writes rows as an aligned table to stdout.
func printTable(header []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
}

// stderrIsTerminal reports whether stderr is an interactive terminal.
// Progress bars are only drawn on a TTY; redirected output gets plain
// per-file status lines instead.
func stderrIsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// progressBar renders a single-line progress bar on stderr, redrawing in
// place. Safe to use from the sequential upload loop only.
type progressBar struct {
	tty   bool
	width int
	last  int // last drawn percent, to avoid redundant redraws
}

func newProgressBar() *progressBar {
	return &progressBar{tty: stderrIsTerminal(), width: 30, last: -1}
}

// update draws the bar for name at the given percent (0..100).
func (b *progressBar) update(name string, percent float64) {
	p := int(percent)
	if p == b.last {
		return
	}

	b.last = p

	if !b.tty {
		// Non-interactive: only log completion, not every tick.
		if p >= 100 {
			fmt.Fprintf(os.Stderr, "%s: done\n", name)
		}

		return
	}

	filled := b.width * p / 100
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", b.width-filled)

	fmt.Fprintf(os.Stderr, "\r%s [%s] %3d%%", name, bar, p)

	if p >= 100 {
		fmt.Fprintln(os.Stderr)
		b.last = -1
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"

	"github.com/yourusername/archivist-go/internal/domain"
)

const (
	ansiRed   = "\033[31m"
	ansiReset = "\033[0m"
)

// progressPrinter renders one console line per processed plan item
type progressPrinter struct {
	w         io.Writer
	withUsage bool
	color     bool
}

func newProgressPrinter(w io.Writer, withUsage bool) *progressPrinter {
	return &progressPrinter{w: w, withUsage: withUsage, color: isTerminal(w)}
}

func (p *progressPrinter) OnProgress(e domain.ProgressEvent) {
	line := formatProgress(e, p.withUsage)
	if p.color && e.Outcome.IsError() {
		line = ansiRed + line + ansiReset
	}
	fmt.Fprintln(p.w, line)
}

// formatProgress renders "[✓ 3/10  30.00%] [☁️ 12.00%] message"; the usage
// block is only shown for downloads
func formatProgress(e domain.ProgressEvent, withUsage bool) string {
	mark := "✓"
	if e.Outcome.IsError() {
		mark = "✗"
	}

	percent := 0.0
	if e.Total > 0 {
		percent = float64(e.Sequence) / float64(e.Total) * 100
	}

	width := len(strconv.Itoa(e.Total))
	line := fmt.Sprintf("[%s %*d/%d %6.2f%%]", mark, width, e.Sequence, e.Total, percent)
	if withUsage {
		line += fmt.Sprintf(" [☁️%6.2f%%]", e.UsagePercent)
	}
	return line + " " + e.Message
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

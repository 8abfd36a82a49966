package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ProgressBar renders source-level progress on a single terminal line.
type ProgressBar struct {
	mu    sync.Mutex
	w     io.Writer
	width int
	lines int
}

// NewProgressBar creates a new progress bar writing to w.
func NewProgressBar(w io.Writer) *ProgressBar {
	return &ProgressBar{w: w, width: 30}
}

// Interactive reports whether f is a terminal, i.e. whether redrawing a
// progress line makes sense.
func Interactive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Update redraws the bar after a source finished with the given line count.
func (pb *ProgressBar) Update(done, total int, source string, lines int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	pb.lines += lines
	frac := 1.0
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	filled := min(int(frac*float64(pb.width)), pb.width)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", pb.width-filled)

	fmt.Fprintf(pb.w, "\r  [%s] %3.0f%% %d/%d sources, %d lines %s", bar, frac*100, done, total, pb.lines, truncateTail(source, 32))
	if done >= total {
		fmt.Fprintln(pb.w)
	}
}

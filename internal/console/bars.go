package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/Garcia6l20/amake-go/internal/progress"
)

const barWidth = 24

// BarRenderer draws one progress line per indicator report. On a TTY the
// current bar is redrawn in place; otherwise each report that moves the
// bar by a whole percent prints a plain line, so logs stay readable when
// piped to a file.
type BarRenderer struct {
	mu     sync.Mutex
	w      io.Writer
	colors *Colors
	isTTY  bool
	width  int

	// id of the bar currently occupying the terminal line, "" if none.
	current string
}

// NewBarRenderer returns a renderer writing to w. On a TTY the bar is
// sized from the terminal width, leaving room for the id and message.
func NewBarRenderer(w io.Writer, colors *Colors, isTTY bool) *BarRenderer {
	if colors == nil {
		colors = NewColors(false)
	}
	width := barWidth
	if isTTY {
		if tw := TerminalWidth() / 3; tw > width {
			width = tw
		}
	}
	return &BarRenderer{w: w, colors: colors, isTTY: isTTY, width: width}
}

// NewSurface implements progress.Factory.
func (r *BarRenderer) NewSurface(id string) progress.Surface {
	return &barSurface{renderer: r, id: id}
}

func (r *BarRenderer) draw(id string, percent float64, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := fmt.Sprintf("%s %s %s", r.colors.ProgressBar(percent, r.width), r.colors.Bold(id), message)

	if r.isTTY {
		if r.current != "" && r.current != id {
			// Another bar owns the line; push it up and start a new one.
			fmt.Fprintln(r.w)
		}
		r.current = id
		fmt.Fprintf(r.w, "\r\033[2K%s", line)
		return
	}

	fmt.Fprintln(r.w, line)
}

func (r *BarRenderer) finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isTTY && r.current == id {
		fmt.Fprintln(r.w)
		r.current = ""
	}
}

// barSurface is the per-indicator handle handed to the tracker.
type barSurface struct {
	renderer  *BarRenderer
	id        string
	percent   float64
	lastDrawn float64
	message   string
}

func (s *barSurface) Report(message string, increment float64) {
	s.percent += increment
	if s.percent > 100 {
		s.percent = 100
	}
	if message != "" {
		s.message = message
	}
	// Avoid spamming non-TTY output with sub-percent updates.
	if !s.renderer.isTTY && increment > 0 && s.percent-s.lastDrawn < 1 {
		return
	}
	s.lastDrawn = s.percent
	s.renderer.draw(s.id, s.percent, s.message)
}

func (s *barSurface) Done() {
	s.renderer.finish(s.id)
}

// Package progress prints the user-facing console notices of a run.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

type Printer struct {
	mu sync.Mutex
	w  io.Writer

	info    *color.Color
	skip    *color.Color
	problem *color.Color
}

// New returns a Printer writing to w. Colour is dropped when noColor is set
// or when color.NoColor reports a non-terminal stdout. A nil *Printer prints
// nothing.
func New(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		w:       w,
		info:    color.New(color.FgGreen),
		skip:    color.New(color.FgYellow, color.Italic),
		problem: color.New(color.FgHiRed, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.info, p.skip, p.problem} {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) Info(format string, args ...any) {
	if p == nil {
		return
	}
	p.print(p.info, format, args...)
}

func (p *Printer) Skip(format string, args ...any) {
	if p == nil {
		return
	}
	p.print(p.skip, format, args...)
}

func (p *Printer) Problem(err error) {
	if p == nil {
		return
	}
	p.print(p.problem, "There was a problem: %v", err)
}

func (p *Printer) print(c *color.Color, format string, args ...any) {
	if p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = c.Fprint(p.w, fmt.Sprintf(format, args...))
	_, _ = fmt.Fprintln(p.w)
}

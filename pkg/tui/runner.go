package tui

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Display drives a Model from engine callbacks. A nil *Display is a no-op,
// which is what NewDisplay returns when out is not a terminal.
type Display struct {
	program *tea.Program
	done    chan struct{}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewDisplay starts a progress display on out for total bubbles.
func NewDisplay(out io.Writer, total int) *Display {
	if !IsTerminal(out) {
		return nil
	}
	return startDisplay(total, tea.WithOutput(out), tea.WithInput(nil))
}

func startDisplay(total int, opts ...tea.ProgramOption) *Display {
	d := &Display{
		program: tea.NewProgram(NewModel(total), opts...),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		_, _ = d.program.Run()
	}()
	return d
}

// Progress is shaped to fit engine.WithProgress.
func (d *Display) Progress(done, failed, total int) {
	if d == nil {
		return
	}
	d.program.Send(ProgressMsg{Done: done, Total: total, Failed: failed})
}

// Finish stops the display and waits for the final frame.
func (d *Display) Finish(err error) {
	if d == nil {
		return
	}
	d.program.Send(DoneMsg{Err: err})
	<-d.done
}

// Package tui renders batch progress in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DrSkyle/bubblescope/pkg/version"
)

// ProgressMsg reports completed bubbles.
type ProgressMsg struct {
	Done   int
	Total  int
	Failed int
}

// DoneMsg ends the display.
type DoneMsg struct {
	Err error
}

type tickMsg time.Time

type Model struct {
	// core components
	spinner  spinner.Model
	progress progress.Model

	// state
	done     int
	total    int
	failed   int
	finished bool
	quitting bool
	err      error
	width    int

	// metrics
	startTime time.Time
	now       time.Time
}

func NewModel(total int) Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = special

	// Gradient Progress Bar (Green to Cyan)
	prog := progress.New(progress.WithGradient("#00FF99", "#00CCFF"))

	start := time.Now()
	return Model{
		spinner:   s,
		progress:  prog,
		total:     total,
		startTime: start,
		now:       start,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(10, min(msg.Width-20, 80))
	case ProgressMsg:
		m.done, m.total, m.failed = msg.Done, msg.Total, msg.Failed
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Percent returns the completed fraction in [0, 1].
func (m Model) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(title.Render(version.AppName) + " " + subtle.Render(version.Current) + "\n\n")

	if m.finished {
		s.WriteString(special.Render("✓ ") + fmt.Sprintf("%d/%d bubbles", m.done, m.total))
	} else {
		s.WriteString(m.spinner.View() + " " + fmt.Sprintf("%d/%d bubbles", m.done, m.total))
	}
	if m.failed > 0 {
		s.WriteString("  " + warning.Render(fmt.Sprintf("%d skipped", m.failed)))
	}
	s.WriteString("\n")
	s.WriteString(m.progress.ViewAs(m.Percent()) + "\n")
	s.WriteString(subtle.Render(fmt.Sprintf("elapsed %s", m.now.Sub(m.startTime).Round(time.Second))) + "\n")

	if m.err != nil {
		s.WriteString(danger.Render("error: "+m.err.Error()) + "\n")
	}
	if m.quitting {
		s.WriteString(subtle.Render("display closed; work continues") + "\n")
	}
	return s.String()
}

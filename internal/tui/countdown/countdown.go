// Package countdown renders the settling wait as a bubbletea progress bar.
package countdown

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/whiterabbit/internal/tui/styles"
)

const (
	tickInterval = 100 * time.Millisecond
	barWidth     = 40
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the countdown view: a label, a bar and the remaining seconds.
type Model struct {
	label string
	total time.Duration
	start time.Time
	now   func() time.Time
	bar   progress.Model
	done  bool
}

// NewModel creates a countdown for total, measured from now.
func NewModel(label string, total time.Duration, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	bar := progress.New(
		progress.WithGradient(string(styles.PrimaryColor), string(styles.SecondaryColor)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	return Model{
		label: label,
		total: total,
		start: now(),
		now:   now,
		bar:   bar,
	}
}

// Init starts the ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update advances the countdown and quits when it has run out.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.Remaining() <= 0 {
			m.done = true
			return m, tea.Quit
		}
		return m, tick()
	case tea.WindowSizeMsg:
		m.bar.Width = min(barWidth, max(msg.Width-len(m.label)-12, 10))
		return m, nil
	}
	return m, nil
}

// View renders one line.
func (m Model) View() string {
	if m.done {
		return ""
	}
	remaining := m.Remaining().Round(time.Second)
	return fmt.Sprintf("%s %s %s\n",
		styles.Muted.Render(m.label),
		m.bar.ViewAs(m.Percent()),
		styles.Text.Render(fmt.Sprintf("%2ds", int(remaining.Seconds()))),
	)
}

// Remaining is the time left, never negative.
func (m Model) Remaining() time.Duration {
	return max(m.total-m.now().Sub(m.start), 0)
}

// Percent is the elapsed share of the countdown in [0, 1].
func (m Model) Percent() float64 {
	if m.total <= 0 {
		return 1
	}
	return 1 - float64(m.Remaining())/float64(m.total)
}

// Done reports whether the countdown ran out.
func (m Model) Done() bool {
	return m.done
}

// Settler waits out the settling interval behind a progress bar.
// It implements probe.Settler.
type Settler struct {
	Output io.Writer
	Label  string
}

// NewSettler creates a Settler drawing to out (stdout when nil).
func NewSettler(out io.Writer) *Settler {
	if out == nil {
		out = os.Stdout
	}
	return &Settler{Output: out, Label: "waiting for reload"}
}

// Settle blocks for d or until ctx is canceled.
func (s *Settler) Settle(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	p := tea.NewProgram(
		NewModel(s.Label, d, time.Now),
		tea.WithOutput(s.Output),
		tea.WithInput(nil),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)
	_, err := p.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

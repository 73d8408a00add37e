package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Iron-Ham/whiterabbit/internal/bisect"
	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/hunt"
	"github.com/Iron-Ham/whiterabbit/internal/revision"
	"github.com/Iron-Ham/whiterabbit/internal/tui/styles"
)

// settleReportEvery is how often Tick prints while settling.
const settleReportEvery = 5 * time.Second

// Progress prints human-readable hunt progress. It implements
// bisect.Observer, and its Round and Tick methods plug into
// hunt.WithRoundHook and probe.SleepSettler.OnTick.
type Progress struct {
	mu  sync.Mutex
	w   io.Writer
	seq revision.Sequence
}

// NewProgress creates a Progress writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

func (p *Progress) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, format, args...)
}

// Round reports a finished list+search round of the expander.
func (p *Progress) Round(r hunt.Round) {
	p.printf("%s %s, %d revisions: %s\n",
		styles.Primary.Render("window"),
		errors.FormatDays(r.Lookback),
		r.Revisions,
		styles.Muted.Render(string(r.Kind)),
	)
}

// SearchStarted implements bisect.Observer.
func (p *Progress) SearchStarted(seq revision.Sequence) {
	p.mu.Lock()
	p.seq = seq
	p.mu.Unlock()
	if seq.Empty() {
		return
	}
	p.printf("searching %d revisions from %s to %s\n",
		seq.Len(),
		styles.Hash.Render(errors.ShortHash(seq.Oldest())),
		styles.Hash.Render(errors.ShortHash(seq.Newest())),
	)
}

// StepStarted implements bisect.Observer.
func (p *Progress) StepStarted(iteration int, rev string, left, right int) {
	p.printf("[%d] probing %s (window %d..%d)\n",
		iteration,
		styles.Hash.Render(errors.ShortHash(rev)),
		left, right,
	)
}

// StepFinished implements bisect.Observer.
func (p *Progress) StepFinished(step bisect.Step) {
	v := step.Verdict
	msg := v.Message
	if step.Cached {
		msg += " (cached)"
	}
	p.printf("    %s\n", styles.VerdictStyle(v.Present, v.Verified).Render(msg))
}

// Tick reports the remaining settling time every few seconds and at zero.
func (p *Progress) Tick(remaining time.Duration) {
	if remaining > 0 && remaining%settleReportEvery != 0 {
		return
	}
	p.printf("    %s\n", styles.Muted.Render(fmt.Sprintf("settling, %ds left", int(remaining.Seconds()))))
}

var _ bisect.Observer = (*Progress)(nil)

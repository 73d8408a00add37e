package revision

import (
	"context"
	"time"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/git"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
)

// Lister lists the revisions committed within a lookback window.
type Lister struct {
	backend git.Backend
	logger  *logging.Logger
	now     func() time.Time
}

// ListerOption configures a Lister.
type ListerOption func(*Lister)

// WithClock replaces time.Now. Tests use it to pin the window.
func WithClock(now func() time.Time) ListerOption {
	return func(l *Lister) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) ListerOption {
	return func(l *Lister) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLister creates a Lister reading history from backend.
func NewLister(backend git.Backend, opts ...ListerOption) *Lister {
	l := &Lister{
		backend: backend,
		logger:  logging.NopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// List returns the revisions on ref committed within lookback of now, oldest
// first. Hunts pass the reference they captured so that the window does not
// depend on where HEAD was left; an empty ref lists from HEAD. A backend
// failure and an empty window both yield an empty Sequence; the caller
// treats either as no data.
func (l *Lister) List(ctx context.Context, ref string, lookback time.Duration) Sequence {
	since := l.now().Add(-lookback)

	ids, err := l.backend.Log(ctx, ref, since)
	if err != nil {
		l.logger.Failure("failed to list revisions", err,
			"ref", ref,
			"lookback", errors.FormatDays(lookback),
			"since", since.Format("2006-01-02"),
		)
		return NewSequence(nil)
	}

	seq := NewSequence(ids)
	if seq.Empty() {
		l.logger.Info("no revisions in window",
			"lookback", errors.FormatDays(lookback),
			"since", since.Format("2006-01-02"),
		)
		return seq
	}

	l.logger.Debug("listed revisions",
		"lookback", errors.FormatDays(lookback),
		"count", seq.Len(),
		"oldest", errors.ShortHash(seq.Oldest()),
		"newest", errors.ShortHash(seq.Newest()),
	)
	return seq
}

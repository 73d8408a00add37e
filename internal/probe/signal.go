package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReloadSignal asks the supervised target process to restart.
type ReloadSignal interface {
	Trigger(ctx context.Context) error
}

// TouchSignal reloads the target by bumping the modification time of the
// file its supervisor watches. A missing file is created.
type TouchSignal struct {
	Path string
	now  func() time.Time
}

// NewTouchSignal creates a TouchSignal for path.
func NewTouchSignal(path string) *TouchSignal {
	return &TouchSignal{Path: path, now: time.Now}
}

// Trigger implements ReloadSignal.
func (s *TouchSignal) Trigger(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Path == "" {
		return fmt.Errorf("touch: no entry file configured")
	}

	now := s.now()
	if err := os.Chtimes(s.Path, now, now); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("touch %s: %w", s.Path, err)
		}
		if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
			return fmt.Errorf("touch %s: %w", s.Path, err)
		}
		f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("touch %s: %w", s.Path, err)
		}
		return f.Close()
	}
	return nil
}

// SignalFunc adapts a function to ReloadSignal.
type SignalFunc func(ctx context.Context) error

// Trigger implements ReloadSignal.
func (f SignalFunc) Trigger(ctx context.Context) error {
	return f(ctx)
}

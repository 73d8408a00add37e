package cmd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/whiterabbit/internal/config"
	"github.com/Iron-Ham/whiterabbit/internal/git"
	"github.com/Iron-Ham/whiterabbit/internal/guard"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
	"github.com/Iron-Ham/whiterabbit/internal/probe"
	"github.com/Iron-Ham/whiterabbit/internal/report"
)

// Progress modes.
const (
	progressAuto  = "auto"
	progressPlain = "plain"
	progressTUI   = "tui"
	progressQuiet = "quiet"
)

// runtime is what every command needs: validated config, the debug log and
// the repository.
type runtime struct {
	cfg      *config.Config
	logger   *logging.Logger
	repo     *git.Repo
	renderer *report.Renderer
	out      io.Writer
}

// newRuntime loads and validates the config and opens the debug log.
// Callers must Close it.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return newRuntimeFromConfig(cmd, cfg)
}

func newRuntimeFromConfig(cmd *cobra.Command, cfg *config.Config) (*runtime, error) {
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid output format", err)
	}

	if abs, err := filepath.Abs(cfg.Repo.Path); err == nil {
		cfg.Repo.Path = abs
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		rotation := logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
		}
		logger, err = logging.NewLoggerWithRotation(cfg.ResolvePath(cfg.Logging.Dir), cfg.Logging.Level, rotation)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open debug log", err)
		}
	}

	repo := git.NewRepo(cfg.Repo.Path,
		git.WithLogger(logger),
		git.WithDefaultBranch(cfg.Repo.DefaultBranch),
		git.WithCheckoutRetry(cfg.Repo.CheckoutRetry()),
	)

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		repo:     repo,
		renderer: report.New(format),
		out:      cmd.OutOrStdout(),
	}, nil
}

// Close flushes and closes the debug log.
func (rt *runtime) Close() {
	_ = rt.logger.Close()
}

// render writes v in the configured format.
func (rt *runtime) render(v any) error {
	if err := rt.renderer.Render(rt.out, v); err != nil {
		return WrapExitError(ExitCommandError, "failed to render output", err)
	}
	return nil
}

// guard returns the state guard for the repository.
func (rt *runtime) guard() *guard.Guard {
	return guard.New(rt.repo,
		guard.WithAllowDetached(rt.cfg.Repo.AllowDetached),
		guard.WithLogger(rt.logger),
	)
}

// reloadSignal touches the configured entry file.
func (rt *runtime) reloadSignal() probe.ReloadSignal {
	return probe.NewTouchSignal(rt.cfg.ResolvePath(rt.cfg.Target.EntryFile))
}

// progressWriter is where live progress goes: stdout for text reports,
// stderr when stdout carries JSON or YAML.
func (rt *runtime) progressWriter(cmd *cobra.Command) io.Writer {
	if rt.renderer.Format == report.FormatText {
		return cmd.OutOrStdout()
	}
	return cmd.ErrOrStderr()
}

// resolveProgress turns the auto mode into tui or plain depending on
// whether w is a terminal.
func resolveProgress(mode string, w io.Writer) string {
	if mode != progressAuto && mode != "" {
		return mode
	}
	if isTerminal(w) {
		return progressTUI
	}
	return progressPlain
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

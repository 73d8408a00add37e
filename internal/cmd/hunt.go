package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/whiterabbit/internal/bisect"
	"github.com/Iron-Ham/whiterabbit/internal/config"
	"github.com/Iron-Ham/whiterabbit/internal/hunt"
	"github.com/Iron-Ham/whiterabbit/internal/probe"
	"github.com/Iron-Ham/whiterabbit/internal/report"
	"github.com/Iron-Ham/whiterabbit/internal/revision"
	"github.com/Iron-Ham/whiterabbit/internal/tui/countdown"
)

var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Bisect history for the commit where the marker disappeared",
	Long: `Hunt lists the commits of the last N days, reloads the target at each
probed revision and bisects to the boundary between the last revision
whose log shows the marker and the first one whose log does not.

An empty window, or one where every revision lacks the marker, is
doubled until it reaches --max-days. The repository is restored to its
starting branch (or commit) when the hunt ends, including on Ctrl-C.

Examples:
  # Search the last week
  whiterabbit hunt --days 7

  # Search today's commits only, without widening
  whiterabbit hunt --days 0 --no-expand

  # Look for a different marker with a shorter settle time
  whiterabbit hunt --days 3 --marker "server ready" --settle 5`,
	RunE: runHunt,
}

var (
	huntDays      int
	huntNoExpand  bool
	huntNoReload  bool
	huntNoConfirm bool
	huntProgress  string
)

func init() {
	rootCmd.AddCommand(huntCmd)

	huntCmd.Flags().IntVarP(&huntDays, "days", "d", 1, "Initial lookback in days")
	huntCmd.Flags().Int("max-days", 0, "Cap for lookback expansion in days (default from config)")
	huntCmd.Flags().BoolVar(&huntNoExpand, "no-expand", false, "Do not widen an empty or all-bad window")
	huntCmd.Flags().BoolVar(&huntNoReload, "no-reload", false, "Do not touch the entry file before inspecting")
	huntCmd.Flags().Int("settle", 0, "Seconds to wait for the reload before inspecting (default from config)")
	huntCmd.Flags().String("marker", "", "Marker text searched for in the log (default from config)")
	huntCmd.Flags().BoolVar(&huntNoConfirm, "no-confirm", false, "Do not re-probe the boundary once found")
	huntCmd.Flags().StringVar(&huntProgress, "progress", "", "Progress display (auto/plain/tui/quiet)")

	_ = viper.BindPFlag("hunt.max_days", huntCmd.Flags().Lookup("max-days"))
	_ = viper.BindPFlag("target.settle_seconds", huntCmd.Flags().Lookup("settle"))
	_ = viper.BindPFlag("target.marker", huntCmd.Flags().Lookup("marker"))
	_ = viper.BindPFlag("output.progress", huntCmd.Flags().Lookup("progress"))
}

func runHunt(cmd *cobra.Command, args []string) error {
	if huntDays < 0 {
		return NewExitError(ExitCommandError, "--days must not be negative")
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	rep := newHunt(cmd, rt).Run(cmd.Context(), hunt.Request{
		Lookback:    config.Days(huntDays),
		MaxLookback: rt.cfg.Hunt.MaxLookback(),
		AutoExpand:  rt.cfg.Hunt.AutoExpand && !huntNoExpand,
		Confirm:     rt.cfg.Hunt.ConfirmBoundary && !huntNoConfirm,
	})

	if err := rt.render(rep); err != nil {
		return err
	}
	if code := rep.ExitCode(); code != ExitSuccess {
		return NewExitError(code, "")
	}
	return nil
}

// newHunt wires a Hunter for the runtime's repository and target.
func newHunt(cmd *cobra.Command, rt *runtime) *hunt.Hunter {
	cfg := rt.cfg
	w := rt.progressWriter(cmd)
	mode := resolveProgress(cfg.Output.Progress, w)
	progress := report.NewProgress(w)

	var settler probe.Settler
	switch mode {
	case progressTUI:
		settler = countdown.NewSettler(w)
	case progressPlain:
		settler = &probe.SleepSettler{OnTick: progress.Tick}
	default:
		settler = &probe.SleepSettler{}
	}

	logPath := cfg.ResolvePath(cfg.Target.LogFile)
	forceReload := cfg.Target.ForceReload && !huntNoReload
	p := probe.New(rt.repo, probe.NewLogInspector(logPath, cfg.Target.Marker),
		probe.WithReloadSignal(rt.reloadSignal()),
		probe.WithSettler(settler),
		probe.WithSettlingInterval(cfg.Target.SettleInterval()),
		probe.WithForceReload(forceReload),
		probe.WithActivityWatch(logPath),
		probe.WithLogger(rt.logger),
	)

	bisectOpts := []bisect.Option{
		bisect.WithLogger(rt.logger),
		bisect.WithSmallWindow(cfg.Hunt.SmallWindow),
	}
	expanderOpts := []hunt.ExpanderOption{hunt.WithExpanderLogger(rt.logger)}
	if mode != progressQuiet {
		bisectOpts = append(bisectOpts, bisect.WithObserver(progress))
		expanderOpts = append(expanderOpts, hunt.WithRoundHook(progress.Round))
	}

	lister := revision.NewLister(rt.repo, revision.WithLogger(rt.logger))
	expander := hunt.NewExpander(lister, bisect.New(bisectOpts...), p, expanderOpts...)

	return hunt.NewHunter(rt.repo, rt.guard(), expander,
		hunt.WithConfirmOracle(p),
		hunt.WithLogger(rt.logger),
	)
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/whiterabbit/internal/config"
	"github.com/Iron-Ham/whiterabbit/internal/logging"
	"github.com/Iron-Ham/whiterabbit/internal/report"
	"github.com/Iron-Ham/whiterabbit/internal/tui/styles"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the debug log",
	Long: `View and filter whiterabbit's own JSON debug log (hunt.log in
logging.dir).

Examples:
  # Show the last 50 lines
  whiterabbit logs

  # Show everything from one hunt
  whiterabbit logs --hunt 6f1c2b7e-5d4a-4c3b-9a21-0f8e7d6c5b4a -n 0

  # Filter by log level
  whiterabbit logs --level warn

  # Show logs from the last hour
  whiterabbit logs --since 1h

  # Search for specific patterns
  whiterabbit logs --grep "checkout|index.lock"`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsTail   int
	logsLevel  string
	logsSince  string
	logsGrep   string
	logsHuntID string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsHuntID, "hunt", "", "Show only one hunt")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid output format", err)
	}

	filter, err := buildLogFilter(logsLevel, logsSince, logsGrep, logsHuntID, time.Now())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	logPath := filepath.Join(cfg.ResolvePath(cfg.Logging.Dir), logging.FileName)
	entries, err := logging.ReadEntries(logPath)
	if errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No logs found at", logPath)
		return nil
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read debug log", err)
	}
	entries = filter.Apply(entries, logsTail)

	out := cmd.OutOrStdout()
	if format != report.FormatText {
		return report.New(format).Render(out, entries)
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "No matching log entries found.")
		_, _ = fmt.Fprintln(out, "Logs are stored at:", logPath)
		return nil
	}
	return displayLogs(out, entries)
}

// buildLogFilter turns the command-line filters into a logging.Filter.
func buildLogFilter(level, since, grep, huntID string, now time.Time) (logging.Filter, error) {
	f := logging.Filter{HuntID: huntID}
	if level != "" {
		f.Level = logging.ParseLevel(level)
	}
	if since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			return f, fmt.Errorf("invalid duration format: %w", err)
		}
		f.Since = now.Add(-d)
	}
	if grep != "" {
		re, err := regexp.Compile(grep)
		if err != nil {
			return f, fmt.Errorf("invalid grep pattern: %w", err)
		}
		f.Pattern = re
	}
	return f, nil
}

func displayLogs(w io.Writer, entries []logging.Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, formatLogEntry(e)); err != nil {
			return err
		}
	}
	return nil
}

// levelStyle returns the style for a log level
func levelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return styles.Muted
	case logging.LevelInfo:
		return lipgloss.NewStyle().Foreground(styles.BlueColor)
	case logging.LevelWarn:
		return styles.Warning
	case logging.LevelError:
		return styles.Error
	default:
		return styles.Text
	}
}

// formatLogEntry formats a log entry for terminal output
func formatLogEntry(e logging.Entry) string {
	if e.Raw != "" {
		return e.Raw
	}

	var sb strings.Builder
	sb.WriteString(styles.Muted.Render("[" + e.Time.Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	sb.WriteString(levelStyle(e.Level).Render("[" + strings.ToUpper(e.Level) + "]"))
	sb.WriteString(" ")
	sb.WriteString(e.Message)

	field := func(key string, value any) {
		sb.WriteString(" ")
		sb.WriteString(styles.Primary.Render(key + "="))
		sb.WriteString(fmt.Sprint(value))
	}
	if e.Phase != "" {
		field("phase", e.Phase)
	}
	if e.Revision != "" {
		field("revision", e.Revision)
	}
	for _, k := range e.AttrKeys() {
		field(k, e.Attrs[k])
	}
	return sb.String()
}

package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/whiterabbit/internal/health"
	"github.com/Iron-Ham/whiterabbit/internal/report"
	"github.com/Iron-Ham/whiterabbit/internal/results"
)

var checkCmd = &cobra.Command{
	Use:   "check ENV",
	Short: "Run HTTP health checks against an environment",
	Long: `Check requests every configured health path (target.health_paths) on the
environment's base URL (target.environments) and passes when each one
answers 200. Server errors and connection failures are retried until
target.health_timeout_seconds runs out.

Examples:
  whiterabbit check DEV
  whiterabbit check prod --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	env := strings.ToUpper(args[0])
	checker := health.NewChecker(rt.cfg.Target.Environments, rt.cfg.Target.HealthPaths,
		health.WithTimeout(rt.cfg.Target.HealthTimeout()),
		health.WithLogger(rt.logger),
	)

	rec := results.NewRecorder()
	checks, err := checker.Run(cmd.Context(), env)
	if err != nil {
		return WrapExitError(ExitCommandError, "known environments: "+strings.Join(rt.cfg.Target.EnvironmentNames(), ", "), err)
	}
	for _, c := range checks {
		rec.Add(c.Name, c.Success, c.Details())
	}

	base, _ := checker.BaseURL(env)
	summary := rec.Summary()
	if err := rt.render(report.CheckReport{
		Environment: env,
		BaseURL:     base,
		Checks:      checks,
		Summary:     summary,
	}); err != nil {
		return err
	}
	if code := results.ExitCode(summary); code != ExitSuccess {
		return NewExitError(code, "")
	}
	return nil
}

package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/whiterabbit/internal/hunt"
)

var exploreCmd = &cobra.Command{
	Use:   "explore N",
	Short: "Check out the commit N steps behind the branch tip and reload",
	Long: `Explore checks out the revision N first-parent steps behind the tip of
the current branch (the default branch when HEAD is detached), touches the
entry file so the target reloads, and prints the commit's subject and age.

The repository stays on that revision. Run 'whiterabbit restore' to go back.

Examples:
  # Look at the state three commits ago
  whiterabbit explore 3`,
	Args: cobra.ExactArgs(1),
	RunE: runExplore,
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) error {
	offset, err := strconv.Atoi(args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "N must be a whole number", err)
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	x, err := hunt.NewExplorer(rt.repo, rt.guard(), rt.reloadSignal(), rt.logger).Explore(cmd.Context(), offset)
	if err != nil {
		return WrapExitError(ExitFailure, "explore failed", err)
	}
	return rt.render(x)
}

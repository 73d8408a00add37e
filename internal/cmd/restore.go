package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/whiterabbit/internal/errors"
	"github.com/Iron-Ham/whiterabbit/internal/guard"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Return a detached repository to its default branch",
	Long: `Restore is the manual way back after explore, or after a hunt that was
killed before it could clean up. A detached HEAD is checked out onto the
default branch (repo.default_branch, else main, else master). A repository
already on a branch is left alone.`,
	Args: cobra.NoArgs,
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Restoring never keeps a detached HEAD, whatever repo.allow_detached says.
	g := guard.New(rt.repo, guard.WithLogger(rt.logger))
	ref, err := g.Capture(cmd.Context())
	if err != nil {
		msg := "could not restore: " + err.Error()
		if ref.Name != "" {
			// the switch happened but could not be verified; go back to where HEAD was
			back := g.Restore(context.WithoutCancel(cmd.Context()), ref)
			msg += "; " + back.Message
		}
		res := guard.RestoreResult{Success: false, Message: msg}
		if renderErr := rt.render(res); renderErr != nil {
			return renderErr
		}
		return NewExitError(ExitFailure, "")
	}

	msg := "already on " + ref.String()
	if ref.WasDetached {
		msg = "restored " + ref.String() + " from detached commit " + errors.ShortHash(ref.DetachedRevision)
	}
	return rt.render(guard.RestoreResult{Success: true, Message: msg})
}

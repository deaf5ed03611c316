package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modfort/modfort/pkg/errors"
)

// newCheckCmd creates the check command: run dependency resolution over
// the enabled set and report every finding. Read-only; nothing changes
// regardless of the result.
func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the installed set for dependency problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := openRepository(cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			outcome, err := r.Resolve()
			if err != nil {
				return err
			}

			if outcome.OK && !outcome.Advisory() {
				printSuccess("all dependencies satisfied (%d mods)", len(outcome.Order))
				return nil
			}

			printFindings(outcome)
			if !outcome.OK {
				return errors.New(errors.ErrCodeDependencyBlocked, "enabled set does not resolve")
			}
			printWarning("resolution succeeded with advisory findings")
			return nil
		},
	}
}

// newOrderCmd creates the order command: print the resolved load order,
// one mod id per line, dependencies before dependents. With --write the
// load-order artifact is regenerated too, which repairs a hand-edited or
// missing file.
func newOrderCmd(configPath *string) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the resolved load order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := openRepository(cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			outcome, err := r.Resolve()
			if err != nil {
				return err
			}
			if !outcome.OK {
				printFindings(outcome)
				return errors.New(errors.ErrCodeDependencyBlocked, "enabled set does not resolve; no order exists")
			}

			for _, id := range outcome.Order {
				fmt.Println(id)
			}
			if write {
				if err := r.SyncLoadOrder(); err != nil {
					return err
				}
				printSuccess("load-order artifact rewritten")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "rewrite the load-order artifact")
	return cmd
}

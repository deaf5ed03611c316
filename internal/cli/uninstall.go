package cli

import (
	"github.com/spf13/cobra"

	"github.com/modfort/modfort/pkg/errors"
)

// newUninstallCmd creates the uninstall command. Removal is blocked
// while enabled mods still declare a hard dependency on the target; the
// error names every blocking dependent.
func newUninstallCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall [mod-id]",
		Short: "Remove an installed mod and its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := openRepository(cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := r.Uninstall(cmd.Context(), args[0]); err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}
			printSuccess("uninstalled %s", StyleHighlight.Render(args[0]))
			return nil
		},
	}
}

// newEnableCmd creates the enable command. Enabling re-runs dependency
// resolution as if the mod were already enabled; a set that would not
// resolve aborts the change.
func newEnableCmd(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "enable [mod-id]",
		Short: "Enable an installed mod",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetEnabled(cmd, *configPath, args[0], true, yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "proceed despite advisory findings without prompting")
	return cmd
}

// newDisableCmd creates the disable command. Disabling is blocked while
// enabled mods still require the target.
func newDisableCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "disable [mod-id]",
		Short: "Disable an installed mod",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetEnabled(cmd, *configPath, args[0], false, false)
		},
	}
}

func runSetEnabled(cmd *cobra.Command, configPath, id string, enabled, yes bool) error {
	r, cleanup, err := openRepository(cmd, configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	outcome, err := r.SetEnabled(cmd.Context(), id, enabled, yes)
	if err != nil {
		printError("%s", errors.UserMessage(err))
		if outcome != nil {
			printFindings(outcome)
		}
		return err
	}

	verb := "enabled"
	if !enabled {
		verb = "disabled"
	}
	printSuccess("%s %s", verb, StyleHighlight.Render(id))
	return nil
}

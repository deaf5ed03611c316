package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modfort/modfort/pkg/errors"
	"github.com/modfort/modfort/pkg/repo"
	"github.com/modfort/modfort/pkg/resolve"
	"github.com/modfort/modfort/pkg/txn"
)

// installOpts holds the command-line flags for the install command.
type installOpts struct {
	overwrite bool // replace an existing install of the same mod
	yes       bool // accept advisory findings without prompting
}

// newInstallCmd creates the install command. It runs the full install
// transaction: extract, validate, gate on dependency resolution, stage,
// commit. Advisory findings (version conflicts, declared
// incompatibilities) prompt for confirmation unless --yes is given;
// missing dependencies and cycles always abort.
func newInstallCmd(configPath *string) *cobra.Command {
	var opts installOpts

	cmd := &cobra.Command{
		Use:   "install [archive]",
		Short: "Install a mod from a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, *configPath, args[0], &opts)
		},
	}

	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "replace an existing install of the same mod")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "proceed despite advisory findings without prompting")

	return cmd
}

func runInstall(cmd *cobra.Command, configPath, archivePath string, opts *installOpts) error {
	logger := loggerFromContext(cmd.Context())
	r, cleanup, err := openRepository(cmd, configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	prog := newProgress(logger)
	spin := newSpinnerWithContext(cmd.Context(), fmt.Sprintf("Installing %s", archivePath))
	spin.Start()

	res, err := r.Install(cmd.Context(), archivePath, repo.InstallOptions{
		Overwrite:     opts.overwrite,
		AllowAdvisory: opts.yes,
	})
	spin.Stop()

	if err != nil && isAdvisoryBlock(err, res) {
		printWarning("install blocked by advisory findings")
		printFindings(res.Outcome)
		ok, confirmErr := confirmAdvisory("Install anyway?")
		if confirmErr != nil {
			return confirmErr
		}
		if !ok {
			printInfo("install aborted")
			return err
		}
		spin = newSpinnerWithContext(cmd.Context(), fmt.Sprintf("Installing %s", archivePath))
		spin.Start()
		res, err = r.Install(cmd.Context(), archivePath, repo.InstallOptions{
			Overwrite:     opts.overwrite,
			AllowAdvisory: true,
		})
		spin.Stop()
	}
	if err != nil {
		printError("%s", errors.UserMessage(err))
		if res != nil && res.Outcome != nil && !res.Outcome.OK {
			printFindings(res.Outcome)
		}
		return err
	}

	rec := res.Record
	prog.done(fmt.Sprintf("Installed %s v%s", rec.ID, rec.Version))
	printSuccess("%s %s", StyleHighlight.Render(rec.ID), StyleDim.Render("v"+rec.Version))
	printDetail("path: %s", rec.InstallPath)
	if rec.EntryFile != "" {
		printDetail("entry: %s", rec.EntryFile)
	}
	if res.Outcome != nil && res.Outcome.Advisory() {
		printFindings(res.Outcome)
	}
	return nil
}

// isAdvisoryBlock reports whether the install failed only on advisory
// findings, meaning a retry with AllowAdvisory would proceed. Requires
// an interactive terminal to be worth prompting for.
func isAdvisoryBlock(err error, res *txn.Result) bool {
	if !errors.Is(err, errors.ErrCodeDependencyBlocked) {
		return false
	}
	if res == nil || res.Outcome == nil || !res.Outcome.OK {
		return false
	}
	return isTerminal(os.Stdin)
}

// printFindings prints every resolution finding, worst first.
func printFindings(outcome *resolve.Outcome) {
	for _, c := range outcome.Cycles {
		printError("cycle: %s", c.Path)
	}
	for _, m := range outcome.Missing {
		if m.VersionRange != "" {
			printError("missing dependency: %s needs %s %s", m.Requirer, m.ID, m.VersionRange)
		} else {
			printError("missing dependency: %s needs %s", m.Requirer, m.ID)
		}
	}
	for _, c := range outcome.Conflicts {
		printWarning("version conflict: %s needs %s %s, installed %s (%s)",
			c.Requirer, c.ID, c.Range, c.Installed, c.Kind)
	}
	for _, p := range outcome.Incompatible {
		if p.Reason != "" {
			printWarning("incompatible: %s and %s (%s)", p.A, p.B, p.Reason)
		} else {
			printWarning("incompatible: %s and %s", p.A, p.B)
		}
	}
}

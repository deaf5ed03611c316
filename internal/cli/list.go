package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newListCmd creates the list command.
func newListCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed mods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := openRepository(cmd, *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := r.List()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			if len(records) == 0 {
				printInfo("no mods installed")
				return nil
			}

			fmt.Println(StyleTitle.Render("Installed mods"))
			enabled := 0
			for _, rec := range records {
				if rec.Enabled {
					enabled++
				}
				printModLine(rec.ID, rec.Version, rec.Enabled)
			}
			printNewline()
			printStats(len(records), enabled)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output records as JSON")
	return cmd
}

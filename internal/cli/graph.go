package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modfort/modfort/pkg/render"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	output   string // output file; "-" or empty writes DOT to stdout
	detailed bool   // include version and enabled state in labels
	hints    bool   // include soft ordering hints as dashed edges
}

// newGraphCmd creates the graph command. The output format follows the
// file extension: .dot, .svg or .png.
func newGraphCmd(configPath *string) *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the mod dependency graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, *configPath, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.dot, .svg or .png; default: DOT to stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include version and enabled state in node labels")
	cmd.Flags().BoolVar(&opts.hints, "hints", false, "include soft load-before/load-after edges")

	return cmd
}

func runGraph(cmd *cobra.Command, configPath string, opts *graphOpts) error {
	r, cleanup, err := openRepository(cmd, configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := r.List()
	if err != nil {
		return err
	}
	outcome, err := r.Resolve()
	if err != nil {
		return err
	}

	dot := render.ToDOT(records, outcome, render.Options{
		Detailed: opts.detailed,
		Hints:    opts.hints,
	})

	if opts.output == "" || opts.output == "-" {
		fmt.Print(dot)
		return nil
	}

	var data []byte
	switch strings.ToLower(filepath.Ext(opts.output)) {
	case ".dot":
		data = []byte(dot)
	case ".svg":
		spin := newSpinnerWithContext(cmd.Context(), "Rendering graph")
		spin.Start()
		data, err = render.RenderSVG(dot)
		spin.Stop()
	case ".png":
		spin := newSpinnerWithContext(cmd.Context(), "Rendering graph")
		spin.Start()
		data, err = render.RenderPNG(dot)
		spin.Stop()
	default:
		return fmt.Errorf("unsupported output extension %q (want .dot, .svg or .png)", filepath.Ext(opts.output))
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("graph exported")
	printFile(opts.output)
	return nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/pipeline"
	"github.com/avfe/dlg4vtmb/pkg/store"
)

// layoutFile is the JSON document the layout command writes: the options
// that produced the positions plus one placement per row.
type layoutFile struct {
	Mode        string            `json:"mode"`
	Orientation string            `json:"orientation,omitempty"`
	HGap        int               `json:"h_gap"`
	VGap        int               `json:"v_gap"`
	Positions   []store.Placement `json:"positions"`
}

// layoutCommand creates the layout command for computing node positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Compute node positions for a dialogue file",
		Long: `Compute node positions for a dialogue file.

The layout command reads a .dlg or .json dialogue file and assigns every
row an (x, y) canvas position with the selected engine:

  layered  Sugiyama-style layers with barycenter crossing reduction
  forest   one tree per conversation root, packed into a grid

The output is a layout.json file listing one placement per row. Results
are cached locally by content hash, so repeated runs on an unchanged
file are instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	defaults := c.layoutOptions()
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json, \"-\" for stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", defaults.Mode, "layout engine: layered (default), forest")
	cmd.Flags().StringVar(&opts.Orientation, "orientation", defaults.Orientation, "forest growth direction: vertical (default), horizontal")
	cmd.Flags().IntVar(&opts.HGap, "hgap", defaults.HGap, "horizontal gap between nodes (0 = default)")
	cmd.Flags().IntVar(&opts.VGap, "vgap", defaults.VGap, "vertical gap between layers (0 = default)")
	cmd.Flags().BoolVar(&opts.AutoGaps, "auto-gaps", defaults.AutoGaps, "scale gaps down for large files")
	cmd.Flags().BoolVar(&opts.ShowSeparators, "show-separators", false, "lay out blank separator rows too")

	return cmd
}

// runLayout loads the file, computes positions, and writes the layout file.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	opts.Path = input
	if err := opts.Validate(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	rows, _, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}

	positions, cacheHit, err := runner.LayoutWithCacheInfo(ctx, rows, opts)
	if err != nil {
		return err
	}

	cfg := opts.LayoutConfig(len(rows))
	doc := layoutFile{
		Mode:      opts.Mode,
		HGap:      cfg.HGap,
		VGap:      cfg.VGap,
		Positions: store.PlacementsFrom(positions),
	}
	if opts.IsForest() {
		doc.Orientation = opts.Orientation
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if output == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".layout.json"
	}
	if err := os.WriteFile(outputPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(rows), countReplies(rows), cacheHit)
	printNewline()
	printNextStep("Render", fmt.Sprintf("%s render %s", appName, input))

	return nil
}

// countReplies counts the player-reply rows for stats lines.
func countReplies(rows []dialogue.Row) int {
	n := 0
	for _, r := range rows {
		if r.IsReply() {
			n++
		}
	}
	return n
}

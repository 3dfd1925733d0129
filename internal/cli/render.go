package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avfe/dlg4vtmb/pkg/pipeline"
)

// renderCommand creates the render command for generating diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a dialogue file as a diagram",
		Long: `Render a dialogue file as a diagram.

NPC lines draw as boxes, player replies as ellipses. Reply jumps draw as
solid edges, the answer options an NPC offers as dashed gray edges.

Formats: svg (default), png, dot. The dot format writes plain Graphviz
text for piping into other tools; pass "-o -" to write any format to
stdout. Rendered artifacts are cached by content hash.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.<format>, \"-\" for stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", pipeline.DefaultFormat, "output format: svg (default), png, dot")
	cmd.Flags().IntVar(&opts.LabelLimit, "label-limit", 0, "truncate node text at this many characters (0 = default)")
	cmd.Flags().BoolVar(&opts.ShowSeparators, "show-separators", false, "include blank separator rows")

	return cmd
}

// runRender loads the file, renders it, and writes the artifact.
func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
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

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", opts.Format))
	spinner.Start()

	data, cacheHit, err := runner.RenderWithCacheInfo(ctx, rows, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if output == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + "." + opts.Format
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Render complete")
	printFile(outputPath)
	printStats(len(rows), countReplies(rows), cacheHit)

	return nil
}

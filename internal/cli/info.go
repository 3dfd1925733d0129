package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/pipeline"
)

// infoCommand creates the info command for inspecting dialogue structure.
func (c *CLI) infoCommand() *cobra.Command {
	var (
		trace    int
		maxDepth int
		maxPaths int
	)

	cmd := &cobra.Command{
		Use:   "info [file]",
		Short: "Show structure and warnings for a dialogue file",
		Long: `Show structure and warnings for a dialogue file.

Reports row counts, connected components over the answer and leads-to
relations, blank separator rows, and structural warnings: dangling
references, conversation cycles, and lines no conversation path reaches.
Warnings describe oddities shipped game files actually contain; they
never fail the command.

With --trace N, additionally prints every conversation path from a root
NPC line down to row N.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInfo(args[0], trace, maxDepth, maxPaths)
		},
	}

	cmd.Flags().IntVarP(&trace, "trace", "t", -1, "trace conversation paths reaching this row index")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "trace depth bound (0 = default)")
	cmd.Flags().IntVar(&maxPaths, "max-paths", 0, "trace path count bound (0 = default)")

	return cmd
}

func (c *CLI) runInfo(input string, trace, maxDepth, maxPaths int) error {
	rows, encoding, err := pipeline.Load(input)
	if err != nil {
		return err
	}

	replies := countReplies(rows)
	separators := 0
	for _, r := range rows {
		if r.IsEmptySeparator() {
			separators++
		}
	}

	comps := dialogue.Components(rows)
	largest := 0
	for _, comp := range comps {
		if len(comp) > largest {
			largest = len(comp)
		}
	}

	printKeyValue("file", input)
	printKeyValue("encoding", encoding)
	printKeyValue("rows", strconv.Itoa(len(rows)))
	printKeyValue("npc lines", strconv.Itoa(len(rows)-replies))
	printKeyValue("replies", strconv.Itoa(replies))
	printKeyValue("separators", strconv.Itoa(separators))
	printKeyValue("components", strconv.Itoa(len(comps)))
	if len(comps) > 0 {
		printKeyValue("largest", fmt.Sprintf("%d rows", largest))
	}

	warnings := dialogue.Analyze(rows)
	if len(warnings) > 0 {
		printNewline()
		for _, w := range warnings {
			printWarning("%s", w)
		}
	}

	if trace >= 0 {
		printNewline()
		return c.printTrace(rows, trace, maxDepth, maxPaths)
	}
	return nil
}

// printTrace prints every bounded upstream path reaching the target row.
func (c *CLI) printTrace(rows []dialogue.Row, target, maxDepth, maxPaths int) error {
	paths, err := dialogue.TraceUpstream(rows, target, dialogue.TraceOptions{
		MaxDepth: maxDepth,
		MaxPaths: maxPaths,
	})
	if err != nil {
		return err
	}

	printInfo("%d path(s) reach #%d", len(paths), target)
	for _, path := range paths {
		parts := make([]string, len(path))
		for i, idx := range path {
			parts[i] = strconv.Itoa(idx)
		}
		printDetail("%s", strings.Join(parts, " "+iconArrow+" "))
	}
	return nil
}

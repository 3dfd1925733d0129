package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	"github.com/avfe/dlg4vtmb/pkg/pipeline"
)

// convertCommand creates the convert command for translating between the
// game's .dlg format and the JSON interchange format.
func (c *CLI) convertCommand() *cobra.Command {
	var (
		output   string
		encoding string
	)

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert between .dlg and JSON dialogue formats",
		Long: `Convert between .dlg and JSON dialogue formats.

The direction is chosen by file extension: a .dlg input converts to JSON,
a .json input converts back to .dlg. The .dlg reader sniffs the source
encoding (utf-8, cp1251, utf-16, latin-1) and the writer re-encodes with
the same code page unless --encoding overrides it.

Both directions preserve row order, index values, and nil next pointers,
so a round trip reproduces the original table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(args[0], output, encoding)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with swapped extension)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "encoding for .dlg output (default: encoding of the source)")

	return cmd
}

func (c *CLI) runConvert(input, output, encoding string) error {
	prog := newProgress(c.Logger)

	rows, sourceEnc, err := pipeline.Load(input)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Parsed %d rows", len(rows)))

	toJSON := !strings.EqualFold(filepath.Ext(input), ".json")
	if output == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		if toJSON {
			output = base + ".json"
		} else {
			output = base + ".dlg"
		}
	}

	if toJSON {
		err = dlgfile.ExportJSON(output, rows)
	} else {
		enc := encoding
		if enc == "" {
			enc = sourceEnc
		}
		err = dlgfile.Export(output, rows, enc)
	}
	if err != nil {
		return err
	}

	printSuccess("Converted %s", input)
	printFile(output)
	if !toJSON {
		enc := encoding
		if enc == "" {
			enc = sourceEnc
		}
		printDetail("encoding: %s", enc)
	}
	return nil
}

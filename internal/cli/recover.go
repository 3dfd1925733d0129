package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	"github.com/avfe/dlg4vtmb/pkg/recovery"
)

// recoverCommand creates the recover command group for autosave snapshots.
func (c *CLI) recoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Inspect and restore autosave snapshots",
		Long: `Inspect and restore autosave snapshots.

While a file is being edited, unsaved changes are snapshotted to an
autosave sidecar next to it. After a crash, check reports whether a
snapshot newer than the file exists, restore writes its rows back out,
and clear removes it once it is no longer wanted. A clean save clears
the sidecar automatically.`,
	}

	cmd.AddCommand(c.recoverCheckCommand())
	cmd.AddCommand(c.recoverRestoreCommand())
	cmd.AddCommand(c.recoverClearCommand())

	return cmd
}

// recoverCheckCommand creates the "recover check" subcommand.
func (c *CLI) recoverCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Report whether a newer autosave snapshot exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sidecar, ok := recovery.Check(args[0])
			if !ok {
				printInfo("No autosave snapshot for %s", args[0])
				return nil
			}
			printWarning("autosave snapshot is newer than %s", args[0])
			printDetail("%s", sidecar)
			printNextStep("Restore", appName+" recover restore "+args[0])
			return nil
		},
	}
}

// recoverRestoreCommand creates the "recover restore" subcommand.
func (c *CLI) recoverRestoreCommand() *cobra.Command {
	var (
		output   string
		encoding string
	)

	cmd := &cobra.Command{
		Use:   "restore [file]",
		Short: "Write the autosaved rows back to a dialogue file",
		Long: `Write the autosaved rows back to a dialogue file.

The restored copy is written next to the original (<file>.recovered.dlg
by default) rather than over it, so the user decides which version wins.
The snapshot itself is kept until recover clear or a clean save.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			rows, _, err := recovery.Restore(input)
			if err != nil {
				return err
			}

			outputPath := output
			if outputPath == "" {
				base := strings.TrimSuffix(input, filepath.Ext(input))
				outputPath = base + ".recovered.dlg"
			}
			if strings.EqualFold(filepath.Ext(outputPath), ".json") {
				err = dlgfile.ExportJSON(outputPath, rows)
			} else {
				err = dlgfile.Export(outputPath, rows, encoding)
			}
			if err != nil {
				return err
			}

			printSuccess("Restored %d rows", len(rows))
			printFile(outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <file>.recovered.dlg)")
	cmd.Flags().StringVar(&encoding, "encoding", dlgfile.JSONEncoding, "encoding for .dlg output")

	return cmd
}

// recoverClearCommand creates the "recover clear" subcommand.
func (c *CLI) recoverClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [file]",
		Short: "Remove a file's autosave snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := recovery.Clear(args[0]); err != nil {
				return err
			}
			printSuccess("Cleared autosave snapshot for %s", args[0])
			return nil
		},
	}
}

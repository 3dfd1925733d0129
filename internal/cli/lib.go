package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	"github.com/avfe/dlg4vtmb/pkg/pipeline"
	"github.com/avfe/dlg4vtmb/pkg/store"
)

// libCommand creates the lib command group for the shared document library.
func (c *CLI) libCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lib",
		Short: "Share dialogue files through the document library",
		Long: `Share dialogue files through the document library.

The library stores named dialogue documents for a mod team: push uploads
a file under a name, pull downloads it, list shows what exists, rm
removes an entry. The backend comes from the [library] config section:
one JSON file per document under a directory (default), or a MongoDB
collection for a team server.`,
	}

	cmd.AddCommand(c.libPushCommand())
	cmd.AddCommand(c.libPullCommand())
	cmd.AddCommand(c.libListCommand())
	cmd.AddCommand(c.libRemoveCommand())

	return cmd
}

// openStore builds the configured library backend.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Backend:  c.Config.Library.Backend,
		Dir:      c.Config.Library.Dir,
		URI:      c.Config.Library.MongoURI,
		Database: c.Config.Library.MongoDatabase,
	})
}

// libPushCommand creates the "lib push" subcommand.
func (c *CLI) libPushCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "push [file]",
		Short: "Upload a dialogue file to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			rows, _, err := pipeline.Load(input)
			if err != nil {
				return err
			}

			docName := name
			if docName == "" {
				docName = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			}

			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			doc := store.NewDocument(docName, rows, nil)
			if err := st.Put(cmd.Context(), doc); err != nil {
				return err
			}

			printSuccess("Pushed %s", docName)
			printDetail("revision %d · %d rows", doc.Revision, len(rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "library name (default: input file stem)")

	return cmd
}

// libPullCommand creates the "lib pull" subcommand.
func (c *CLI) libPullCommand() *cobra.Command {
	var (
		output   string
		encoding string
	)

	cmd := &cobra.Command{
		Use:   "pull [name]",
		Short: "Download a library document to a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			doc, err := st.Get(cmd.Context(), name)
			if err != nil {
				return err
			}
			rows := doc.DialogueRows()

			outputPath := output
			if outputPath == "" {
				outputPath = name + ".dlg"
			}
			if strings.EqualFold(filepath.Ext(outputPath), ".json") {
				err = dlgfile.ExportJSON(outputPath, rows)
			} else {
				err = dlgfile.Export(outputPath, rows, encoding)
			}
			if err != nil {
				return err
			}

			printSuccess("Pulled %s (revision %d)", name, doc.Revision)
			printFile(outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <name>.dlg)")
	cmd.Flags().StringVar(&encoding, "encoding", dlgfile.DefaultEncoding, "encoding for .dlg output")

	return cmd
}

// libListCommand creates the "lib list" subcommand.
func (c *CLI) libListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List library documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				printInfo("Library is empty")
				return nil
			}

			for _, info := range infos {
				fmt.Println(StyleValue.Render(info.Name))
				printDetail("rev %d · %d rows · %s", info.Revision, info.RowCount,
					info.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

// libRemoveCommand creates the "lib rm" subcommand.
func (c *CLI) libRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [name]",
		Short: "Remove a library document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Removed %s", args[0])
			return nil
		},
	}
}

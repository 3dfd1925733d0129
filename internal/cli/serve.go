package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/avfe/dlg4vtmb/internal/server"
	"github.com/avfe/dlg4vtmb/pkg/pipeline"
	"github.com/avfe/dlg4vtmb/pkg/recovery"
	"github.com/avfe/dlg4vtmb/pkg/session"
)

// serveCommand creates the serve command hosting the editing API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		noCache    bool
		noAutosave bool
	)

	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve one dialogue file behind the editing HTTP API",
		Long: `Serve one dialogue file behind the editing HTTP API.

Opens the file as an editing session and exposes it as a JSON API under
/api: rows, components, layouts, traces, editing commands, undo/redo,
and save. One session per server; concurrent requests serialize through
the session lock.

While the server runs, a dirty session is snapshotted periodically to an
autosave sidecar next to the source file (see the recover command), per
the [autosave] config section.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], addr, noCache, noAutosave)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8574", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable layout/artifact caching")
	cmd.Flags().BoolVar(&noAutosave, "no-autosave", false, "disable autosave snapshots")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, input, addr string, noCache, noAutosave bool) error {
	rows, encoding, err := pipeline.Load(input)
	if err != nil {
		return err
	}

	sess, err := session.New(rows)
	if err != nil {
		return err
	}
	sess.SetSource(input, encoding)

	if sidecar, ok := recovery.Check(input); ok {
		printWarning("an autosave snapshot newer than %s exists", input)
		printDetail("%s", sidecar)
		printNextStep("Restore it", fmt.Sprintf("%s recover restore %s", appName, input))
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv := server.New(sess, runner, c.Logger)

	if !noAutosave && c.Config.Autosave.Enabled {
		interval := time.Duration(c.Config.Autosave.IntervalSeconds) * time.Second
		saver := recovery.NewAutosaver(sess, recovery.Options{
			Interval: interval,
			Lock:     srv.Locker(),
			Logger:   c.Logger,
		})
		saver.Start()
		defer saver.Stop()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("serving editing API", "addr", addr, "file", input, "rows", len(rows))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		c.Logger.Info("server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

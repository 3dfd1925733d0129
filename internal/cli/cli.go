// Package cli implements the dlg4vtmb command-line interface.
//
// This package provides commands for converting Bloodlines dialogue files
// between the .dlg and JSON formats, computing graph layouts, rendering
// diagrams, inspecting dialogue structure, browsing files in a terminal UI,
// serving the editing API, and managing the shared document library. The
// CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - convert: Translate between .dlg and the JSON interchange format
//   - layout: Compute node positions with the layered or forest engine
//   - render: Generate DOT, SVG, or PNG diagrams
//   - info: Show structure, components, and warnings for a file
//   - browse: Read-only terminal browser for dialogue rows
//   - serve: Host one editing session behind the JSON HTTP API
//   - lib: Push, pull, list, and remove shared library documents
//   - recover: Inspect and restore autosave snapshots
//   - cache: Manage the layout/artifact cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and
// --quiet (-q) to silence everything below warnings.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/avfe/dlg4vtmb/pkg/buildinfo"
	"github.com/avfe/dlg4vtmb/pkg/cache"
	"github.com/avfe/dlg4vtmb/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "dlg4vtmb"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config

	configPath string
}

// New creates a new CLI instance with a default logger and the default
// configuration. The config file is loaded lazily in the root command's
// PersistentPreRunE so --config can point elsewhere.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose, quiet bool

	root := &cobra.Command{
		Use:          appName,
		Short:        "dlg4vtmb edits Bloodlines branching dialogue files",
		Long:         `dlg4vtmb is a toolset for Vampire: The Masquerade - Bloodlines .dlg dialogue files: format conversion, automatic graph layout, diagram rendering, structural analysis, and a transactional editing API with undo/redo.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case quiet:
				c.SetLogLevel(LogWarn)
			case verbose:
				c.SetLogLevel(LogDebug)
			}
			cfg, err := LoadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.config/dlg4vtmb/config.toml)")

	// Register all subcommands
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.libCommand())
	root.AddCommand(c.recoverCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. The cache backend comes
// from the [cache] config section; --no-cache forces the null backend.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ca, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ca, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, c.Config.Cache.RedisURL)
	default:
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/dlg4vtmb/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/dlg4vtmb/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

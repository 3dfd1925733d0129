// Package pipeline provides the load → layout → render pipeline shared by
// the CLI and the HTTP API. Centralizing the three stages behind one Runner
// keeps both entry points producing identical positions and artifacts for
// identical inputs.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read a .dlg or .json dialogue file into rows
//  2. Layout: compute canvas positions with the layered or forest engine
//  3. Render: generate DOT, SVG, or PNG output via Graphviz
//
// Each stage can be run independently or as part of the complete pipeline.
// Layout and render results are cached by the rows' content hash plus the
// options that shape the output; loading is always a fresh file read.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	opts := pipeline.Options{
//	    Path:   "malkavian_banter.dlg",
//	    Mode:   pipeline.ModeLayered,
//	    Format: pipeline.FormatSVG,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifact
//
// Run individual stages:
//
//	// Load only
//	rows, encoding, err := runner.Load(ctx, opts)
//
//	// Layout with existing rows
//	positions, err := runner.ComputeLayout(ctx, rows, opts)
//
//	// Render with existing rows
//	artifact, err := runner.Render(ctx, rows, opts)
package pipeline

import (
	"time"

	"github.com/avfe/dlg4vtmb/pkg/cache"
	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/layout"
	"github.com/avfe/dlg4vtmb/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Layout mode names.
const (
	ModeLayered = "layered"
	ModeForest  = "forest"
)

// Orientation names for the forest engine, aliased from pkg/layout for
// callers that only import the pipeline.
const (
	OrientationVertical   = string(layout.Vertical)
	OrientationHorizontal = string(layout.Horizontal)
)

// Output format names, aliased from pkg/render.
const (
	FormatDOT = render.FormatDOT
	FormatSVG = render.FormatSVG
	FormatPNG = render.FormatPNG
)

const (
	// DefaultMode is the default layout engine.
	DefaultMode = ModeLayered

	// DefaultOrientation is the default forest growth direction.
	DefaultOrientation = OrientationVertical

	// DefaultFormat is the default render output format.
	DefaultFormat = FormatSVG
)

// ValidModes is the set of supported layout modes.
var ValidModes = map[string]bool{
	ModeLayered: true,
	ModeForest:  true,
}

// ValidOrientations is the set of supported forest orientations.
var ValidOrientations = map[string]bool{
	OrientationVertical:   true,
	OrientationHorizontal: true,
}

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
	FormatPNG: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline. The struct supports
// JSON serialization for API requests.
type Options struct {
	// Load options
	Path string `json:"path,omitempty"`

	// Layout options
	Mode           string `json:"mode,omitempty"`
	Orientation    string `json:"orientation,omitempty"`
	HGap           int    `json:"h_gap,omitempty"`
	VGap           int    `json:"v_gap,omitempty"`
	AutoGaps       bool   `json:"auto_gaps,omitempty"` // derive gaps from row count
	ShowSeparators bool   `json:"show_separators,omitempty"`

	// Render options
	Format     string `json:"format,omitempty"`
	LabelLimit int    `json:"label_limit,omitempty"`

	// validated tracks whether Validate has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Rows is the loaded dialogue table in file order.
	Rows []dialogue.Row

	// RowsHash is the content hash of the rows, shared with the cache keys.
	RowsHash string

	// Encoding names the code page the source file decoded with.
	Encoding string

	// Positions maps row index to canvas position.
	Positions map[int]layout.Point

	// Artifact is the rendered output in the requested format.
	Artifact []byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RowCount   int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits per pipeline stage. Loading never hits a
// cache; the file on disk is the source of truth.
type CacheInfo struct {
	LayoutHit bool // Whether positions came from cache
	RenderHit bool // Whether the artifact came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateMode checks that a layout mode is valid.
func ValidateMode(mode string) error {
	if !ValidModes[mode] {
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"invalid layout mode %q (must be one of: layered, forest)", mode)
	}
	return nil
}

// ValidateOrientation checks that a forest orientation is valid.
func ValidateOrientation(orientation string) error {
	if !ValidOrientations[orientation] {
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"invalid orientation %q (must be one of: vertical, horizontal)", orientation)
	}
	return nil
}

// ValidateFormat checks that an output format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"invalid format %q (must be one of: dot, svg, png)", format)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// Validate checks option values and applies defaults for the full pipeline.
// The method is idempotent; calling it twice has the same effect as calling
// it once.
func (o *Options) Validate() error {
	if o.validated {
		return nil
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if o.Orientation == "" {
		o.Orientation = DefaultOrientation
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.HGap == 0 {
		o.HGap = layout.DefaultHGap
	}
	if o.VGap == 0 {
		o.VGap = layout.DefaultVGap
	}
	if o.LabelLimit == 0 {
		o.LabelLimit = render.DefaultLabelLimit
	}

	if err := ValidateMode(o.Mode); err != nil {
		return err
	}
	if err := ValidateOrientation(o.Orientation); err != nil {
		return err
	}
	if err := ValidateFormat(o.Format); err != nil {
		return err
	}
	if o.HGap < 0 || o.VGap < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"gaps must not be negative (h_gap=%d, v_gap=%d)", o.HGap, o.VGap)
	}
	if o.LabelLimit < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"label_limit must not be negative (got %d)", o.LabelLimit)
	}

	o.validated = true
	return nil
}

// LayoutConfig converts the options into engine spacing. AutoGaps, when
// set, overrides the explicit gaps based on the row count.
func (o *Options) LayoutConfig(rowCount int) layout.Config {
	cfg := layout.Config{HGap: o.HGap, VGap: o.VGap}
	if o.AutoGaps {
		cfg.HGap, cfg.VGap = layout.AutoGaps(rowCount)
	}
	return cfg
}

// LayoutKeyOpts returns cache key options for layout computation. AutoGaps
// must be resolved into concrete gaps first (see [Options.LayoutConfig]);
// the key carries the effective spacing, never the flag.
func (o *Options) LayoutKeyOpts(cfg layout.Config) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Mode:           o.Mode,
		Orientation:    o.Orientation,
		HGap:           cfg.HGap,
		VGap:           cfg.VGap,
		ShowSeparators: o.ShowSeparators,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(cfg layout.Config) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:     o.Format,
		LabelLimit: o.LabelLimit,
		Layout:     o.LayoutKeyOpts(cfg),
	}
}

// IsForest returns true if the forest engine is selected.
func (o *Options) IsForest() bool {
	return o.Mode == ModeForest
}

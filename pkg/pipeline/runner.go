package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/avfe/dlg4vtmb/pkg/cache"
	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	"github.com/avfe/dlg4vtmb/pkg/layout"
	"github.com/avfe/dlg4vtmb/pkg/observability"
)

// Runner encapsulates pipeline execution with caching. Both CLI and API use
// this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger; it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	rows, encoding, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Rows = rows
	result.Encoding = encoding
	result.RowsHash = RowsHash(rows)
	result.Stats.RowCount = len(rows)
	result.Stats.LoadTime = time.Since(loadStart)

	r.Logger.Info("loaded dialogue",
		"path", opts.Path,
		"rows", len(rows),
		"encoding", encoding,
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	positions, layoutHit, err := r.LayoutWithCacheInfo(ctx, rows, opts)
	if err != nil {
		return nil, err
	}
	result.Positions = positions
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"mode", opts.Mode,
		"positions", len(positions),
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifact, renderHit, err := r.RenderWithCacheInfo(ctx, rows, opts)
	if err != nil {
		return nil, err
	}
	result.Artifact = artifact
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered artifact",
		"format", opts.Format,
		"bytes", len(artifact),
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load reads the dialogue file named by opts.Path. Loads are never cached.
func (r *Runner) Load(ctx context.Context, opts Options) ([]dialogue.Row, string, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, opts.Path)

	start := time.Now()
	rows, encoding, err := Load(opts.Path)
	hooks.OnLoadComplete(ctx, opts.Path, len(rows), time.Since(start), err)

	return rows, encoding, err
}

// LayoutWithCacheInfo computes positions with caching and returns cache hit
// info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, rows []dialogue.Row, opts Options) (map[int]layout.Point, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}

	visible := dialogue.VisibleRows(rows, opts.ShowSeparators)
	cfg := opts.LayoutConfig(len(visible))
	cacheKey := r.Keyer.LayoutKey(RowsHash(rows), opts.LayoutKeyOpts(cfg))

	cacheHooks := observability.Cache()

	// Try cache first
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		var cached map[int]layout.Point
		if err := json.Unmarshal(data, &cached); err == nil {
			cacheHooks.OnCacheHit(ctx, "layout")
			return cached, true, nil
		}
		// If deserialization fails, fall through to recompute
	}
	cacheHooks.OnCacheMiss(ctx, "layout")

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, opts.Mode, len(rows))

	start := time.Now()
	positions := ComputeLayout(rows, opts)
	hooks.OnLayoutComplete(ctx, opts.Mode, time.Since(start), nil)

	// Cache the result
	if data, err := json.Marshal(positions); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout)
		cacheHooks.OnCacheSet(ctx, "layout", len(data))
	}

	return positions, false, nil
}

// ComputeLayout is a convenience wrapper that calls LayoutWithCacheInfo and
// discards the cache hit info.
func (r *Runner) ComputeLayout(ctx context.Context, rows []dialogue.Row, opts Options) (map[int]layout.Point, error) {
	positions, _, err := r.LayoutWithCacheInfo(ctx, rows, opts)
	return positions, err
}

// RenderWithCacheInfo generates an artifact with caching and returns cache
// hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, rows []dialogue.Row, opts Options) ([]byte, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}

	visible := dialogue.VisibleRows(rows, opts.ShowSeparators)
	cfg := opts.LayoutConfig(len(visible))
	cacheKey := r.Keyer.ArtifactKey(RowsHash(rows), opts.ArtifactKeyOpts(cfg))

	cacheHooks := observability.Cache()

	// Try cache first
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		cacheHooks.OnCacheHit(ctx, "artifact")
		return data, true, nil
	}
	cacheHooks.OnCacheMiss(ctx, "artifact")

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Format)

	start := time.Now()
	artifact, err := Render(ctx, rows, opts)
	hooks.OnRenderComplete(ctx, opts.Format, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache the result
	_ = r.Cache.Set(ctx, cacheKey, artifact, cache.TTLArtifact)
	cacheHooks.OnCacheSet(ctx, "artifact", len(artifact))

	return artifact, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, rows []dialogue.Row, opts Options) ([]byte, error) {
	artifact, _, err := r.RenderWithCacheInfo(ctx, rows, opts)
	return artifact, err
}

// RowsHash returns the content hash that keys cached layouts and artifacts
// for rows. Two documents with identical rows share cache entries.
func RowsHash(rows []dialogue.Row) string {
	data, err := json.Marshal(dlgfile.NodesFromRows(rows))
	if err != nil {
		return cache.Hash(nil)
	}
	return cache.Hash(data)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

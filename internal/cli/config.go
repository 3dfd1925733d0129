package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/pipeline"
)

// Config is the TOML config file shape. Flags override file values, and
// file values override the defaults, so every field has a sensible zero
// behavior.
type Config struct {
	Layout   LayoutConfig   `toml:"layout"`
	Autosave AutosaveConfig `toml:"autosave"`
	Cache    CacheConfig    `toml:"cache"`
	Library  LibraryConfig  `toml:"library"`
}

// LayoutConfig carries the default layout parameters commands start from.
type LayoutConfig struct {
	Mode        string `toml:"mode"`        // "layered" or "forest"
	Orientation string `toml:"orientation"` // "vertical" or "horizontal"
	HGap        int    `toml:"h_gap"`
	VGap        int    `toml:"v_gap"`
	AutoGaps    bool   `toml:"auto_gaps"` // scale gaps down for large files
}

// AutosaveConfig controls the serve command's crash-recovery snapshots.
type AutosaveConfig struct {
	Enabled         bool `toml:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds"`
}

// CacheConfig selects the layout/artifact cache backend.
type CacheConfig struct {
	Backend  string `toml:"backend"` // "file" (default), "redis", "none"
	RedisURL string `toml:"redis_url"`
}

// LibraryConfig selects the shared document library backend.
type LibraryConfig struct {
	Backend       string `toml:"backend"` // "file" (default) or "mongo"
	Dir           string `toml:"dir"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Layout: LayoutConfig{
			Mode:        pipeline.DefaultMode,
			Orientation: pipeline.DefaultOrientation,
		},
		Autosave: AutosaveConfig{
			Enabled:         true,
			IntervalSeconds: 60,
		},
		Cache:   CacheConfig{Backend: "file"},
		Library: LibraryConfig{Backend: "file"},
	}
}

// defaultConfigPath returns ~/.config/dlg4vtmb/config.toml (or the XDG
// equivalent).
func defaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing file is not an error: the defaults apply. A
// file that exists but does not parse is an INVALID_CONFIG error, so a
// typo never silently falls back to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	return cfg, nil
}

// layoutOptions seeds pipeline options from the config file's [layout]
// section. Command flags overwrite individual fields afterwards.
func (c *CLI) layoutOptions() pipeline.Options {
	return pipeline.Options{
		Mode:        c.Config.Layout.Mode,
		Orientation: c.Config.Layout.Orientation,
		HGap:        c.Config.Layout.HGap,
		VGap:        c.Config.Layout.VGap,
		AutoGaps:    c.Config.Layout.AutoGaps,
	}
}

// Package recovery persists autosave snapshots of documents under edit
// and restores them after a crash.
//
// An [Autosaver] watches one session: on every interval it checks the
// dirty flag and, when set, snapshots the rows and positions and writes
// them to a sidecar JSON next to the source file (and, when a cache is
// configured, under the document's recovery key). Autosave failures are
// logged at debug level and swallowed; a full disk must not break
// editing.
//
// On startup, [Check] reports whether a snapshot that has not been
// superseded by a save exists, [Restore] loads it, and [Clear] removes
// it after a clean save.
package recovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/layout"
)

// sidecar is the on-disk shape of one autosave snapshot.
type sidecar struct {
	SavedAt   time.Time            `json:"saved_at"`
	Source    string               `json:"source,omitempty"`
	Nodes     []dlgfile.Node       `json:"nodes"`
	Positions map[int]layout.Point `json:"positions,omitempty"`
}

// SidecarPath returns the autosave location for a document path. A
// document that has never been saved (empty path) shares one per-user
// file under the data dir.
func SidecarPath(docPath string) (string, error) {
	if docPath != "" {
		return docPath + ".autosave.json", nil
	}
	dir, err := dataDir()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeIO, err, "resolve autosave dir")
	}
	return filepath.Join(dir, "autosave.json"), nil
}

func dataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "dlg4vtmb"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "dlg4vtmb"), nil
}

// Check reports whether a restorable snapshot exists for the document
// at docPath. A snapshot older than its source file was superseded by a
// save that could not clear it and does not count. The returned path is
// the sidecar location, for prompts.
func Check(docPath string) (string, bool) {
	side, err := SidecarPath(docPath)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(side)
	if err != nil || info.Size() == 0 {
		return side, false
	}
	if docPath != "" {
		src, err := os.Stat(docPath)
		if err == nil && src.ModTime().After(info.ModTime()) {
			return side, false
		}
	}
	return side, true
}

// Restore loads the snapshot for the document at docPath. The restored
// rows carry no source of their own; callers treat them as an unsaved
// utf-8 document and recompute layout when no positions came back.
func Restore(docPath string) ([]dialogue.Row, map[int]layout.Point, error) {
	side, err := SidecarPath(docPath)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(side)
	if os.IsNotExist(err) {
		return nil, nil, apperrors.New(apperrors.ErrCodeNotFound, "no autosave at %s", side)
	}
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrCodeIO, err, "read autosave %s", side)
	}
	var snap sidecar
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrCodeDecode, err, "parse autosave %s", side)
	}
	if len(snap.Nodes) == 0 {
		return nil, nil, apperrors.New(apperrors.ErrCodeInvalidFormat, "autosave %s has no rows", side)
	}
	return dlgfile.RowsFromNodes(snap.Nodes), snap.Positions, nil
}

// Clear removes the snapshot for the document at docPath. A missing
// sidecar is fine.
func Clear(docPath string) error {
	side, err := SidecarPath(docPath)
	if err != nil {
		return err
	}
	if err := os.Remove(side); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "remove autosave %s", side)
	}
	return nil
}

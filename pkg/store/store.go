// Package store is a named library of dialogue documents, for sharing
// work-in-progress files across a mod team.
//
// Documents are stored by name. A Put on an existing name replaces the
// rows and positions, keeps the document's identity, and bumps its
// revision; a Put on a new name creates it at revision 1.
//
// # Backends
//
// Two backends implement Store:
//   - file: one JSON file per document under a directory (defaults to
//     the XDG data dir). Suited to a single machine or a shared mount.
//   - mongo: a MongoDB collection with a unique index on name, where
//     the revision bump happens server-side so concurrent editors
//     cannot produce the same revision twice.
//
// Pick one with Open:
//
//	st, err := store.Open(ctx, store.Config{Backend: "file"})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
package store

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/layout"
)

// Document is one dialogue file in the library. Rows use the JSON
// interchange node shape so the same struct serves both backends.
type Document struct {
	ID        uuid.UUID      `json:"id" bson:"_id"`
	Name      string         `json:"name" bson:"name"`
	Rows      []dlgfile.Node `json:"rows" bson:"rows"`
	Positions []Placement    `json:"positions,omitempty" bson:"positions,omitempty"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
	Revision  int64          `json:"revision" bson:"revision"`
}

// Placement pins one row's scene position. Positions are stored as a
// list rather than an index-keyed map so the BSON encoding stays flat.
type Placement struct {
	Index int     `json:"index" bson:"index"`
	X     float64 `json:"x" bson:"x"`
	Y     float64 `json:"y" bson:"y"`
}

// Info is one row of a library listing. It carries everything the list
// command shows without loading document bodies.
type Info struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	RowCount  int       `json:"row_count" bson:"row_count"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
	Revision  int64     `json:"revision" bson:"revision"`
}

// NewDocument builds a library document from live table state.
func NewDocument(name string, rows []dialogue.Row, positions map[int]layout.Point) *Document {
	return &Document{
		Name:      name,
		Rows:      dlgfile.NodesFromRows(rows),
		Positions: PlacementsFrom(positions),
	}
}

// DialogueRows converts the document body back to live rows.
func (d *Document) DialogueRows() []dialogue.Row {
	return dlgfile.RowsFromNodes(d.Rows)
}

// PositionMap converts the stored placements back to a position table.
func (d *Document) PositionMap() map[int]layout.Point {
	out := make(map[int]layout.Point, len(d.Positions))
	for _, p := range d.Positions {
		out[p.Index] = layout.Point{X: p.X, Y: p.Y}
	}
	return out
}

// PlacementsFrom flattens a position table into placements, ordered by
// index so the stored form is deterministic.
func PlacementsFrom(positions map[int]layout.Point) []Placement {
	if len(positions) == 0 {
		return nil
	}
	out := make([]Placement, 0, len(positions))
	for idx, p := range positions {
		out = append(out, Placement{Index: idx, X: p.X, Y: p.Y})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Store is the interface for library backends.
//
// Put assigns the stored identity back to doc: after a successful call
// doc.ID, doc.Revision, and doc.UpdatedAt hold the values the library
// recorded, so callers can report the new revision.
type Store interface {
	Put(ctx context.Context, doc *Document) error

	// Get retrieves a document by name. Unknown names return a
	// DOCUMENT_NOT_FOUND error.
	Get(ctx context.Context, name string) (*Document, error)

	// List returns a listing of every document, sorted by name.
	List(ctx context.Context) ([]Info, error)

	// Delete removes a document by name. Unknown names return a
	// DOCUMENT_NOT_FOUND error.
	Delete(ctx context.Context, name string) error

	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend  string // "file" (default) or "mongo"
	Dir      string // file backend root; empty means the XDG data dir
	URI      string // mongo connection string
	Database string // mongo database name; empty means "dlg4vtmb"
}

// Open builds the backend the config names.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "mongo", "mongodb":
		return NewMongoStore(ctx, cfg.URI, cfg.Database)
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Backend)
	}
}

// validateName rejects names that cannot serve as a file stem or would
// escape the library directory.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "document name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "document name %q must not contain path separators", name)
	}
	if strings.HasPrefix(name, ".") {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "document name %q must not start with a dot", name)
	}
	return nil
}

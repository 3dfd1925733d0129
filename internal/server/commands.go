package server

import (
	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/layout"
	"github.com/avfe/dlg4vtmb/pkg/session"
)

// commandEnvelope is the request body of POST /api/commands: a tagged
// union keyed on op. Fields that do not belong to the chosen op are
// ignored.
//
// Supported ops:
//
//	add       rows, plus optional positions and at
//	remove    indices
//	edit      old and new row
//	relink    index, old_next, new_next (an omitted target means no jump)
//	move      index, x, y
//	renumber  start, delta
type commandEnvelope struct {
	Op string `json:"op"`

	// add
	Rows      []dlgfile.Node       `json:"rows,omitempty"`
	Positions map[int]layout.Point `json:"positions,omitempty"`
	At        *int                 `json:"at,omitempty"`

	// remove
	Indices []int `json:"indices,omitempty"`

	// edit
	Old *dlgfile.Node `json:"old,omitempty"`
	New *dlgfile.Node `json:"new,omitempty"`

	// relink and move
	Index   int      `json:"index,omitempty"`
	OldNext *int     `json:"old_next,omitempty"`
	NewNext *int     `json:"new_next,omitempty"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`

	// renumber
	Start int `json:"start,omitempty"`
	Delta int `json:"delta,omitempty"`
}

// command builds the session command the envelope describes. The caller
// must hold the session lock: move captures the current position for undo.
func (s *Server) command(env commandEnvelope) (session.Command, error) {
	switch env.Op {
	case "add":
		if len(env.Rows) == 0 {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, `"add" needs at least one row`)
		}
		at := -1
		if env.At != nil {
			at = *env.At
		}
		return &session.AddNodes{
			Rows:      dlgfile.RowsFromNodes(env.Rows),
			Positions: env.Positions,
			At:        at,
		}, nil

	case "remove":
		return &session.RemoveNodes{Indices: env.Indices}, nil

	case "edit":
		if env.Old == nil || env.New == nil {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, `"edit" needs "old" and "new" rows`)
		}
		return &session.EditNode{Old: env.Old.Row(), New: env.New.Row()}, nil

	case "relink":
		return &session.Relink{Index: env.Index, OldNext: env.OldNext, NewNext: env.NewNext}, nil

	case "move":
		if env.X == nil || env.Y == nil {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, `"move" needs "x" and "y"`)
		}
		old, _ := s.sess.Position(env.Index)
		return &session.Move{
			Index:  env.Index,
			OldPos: old,
			NewPos: layout.Point{X: *env.X, Y: *env.Y},
		}, nil

	case "renumber":
		if env.Delta == 0 {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, `"renumber" needs a non-zero delta`)
		}
		return &session.RenumberShift{Start: env.Start, Delta: env.Delta}, nil

	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "unknown command op %q", env.Op)
	}
}

// Package session implements the transactional editing core for one open
// dialogue document.
//
// A Session owns the row table, the scene position table, and a linear
// undo/redo history. Every structural change travels through Apply as a
// [Command] that validates before it mutates, so a failed operation leaves
// the document exactly as it was. Undo and Redo replay the log in strict
// LIFO order; composite editor actions group their steps into a [Macro] so
// one undo reverts the whole gesture.
//
// # Concurrency
//
// A session is single-threaded by contract and takes no locks. Callers
// that share one session across goroutines (the HTTP server, the
// autosaver) serialize access themselves and use Snapshot to hand
// independent copies to background work.
//
// # Usage
//
//	sess, err := session.New(rows)
//	if err != nil {
//		return err
//	}
//	err = sess.Apply(&session.Relink{Index: 12, OldNext: dialogue.Ref(3), NewNext: dialogue.Ref(7)})
//	name, err := sess.Undo()
package session

import (
	"maps"

	"github.com/google/uuid"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/layout"
)

// EventKind tags a change notification.
type EventKind string

// Notification kinds observers receive.
const (
	EventApply  EventKind = "apply"
	EventUndo   EventKind = "undo"
	EventRedo   EventKind = "redo"
	EventMove   EventKind = "move"
	EventLayout EventKind = "layout"
)

// Event is a change notification. Command carries the command label for
// apply, undo, and redo events; Index carries the written row for move
// events.
type Event struct {
	Kind    EventKind
	Command string
	Index   int
}

// Observer receives change notifications. Observers run synchronously on
// the mutating call and must not call Apply, Undo, or Redo themselves.
type Observer func(Event)

// LayoutKind selects the engine Relayout runs.
type LayoutKind string

const (
	LayoutLayered LayoutKind = "layered"
	LayoutForest  LayoutKind = "forest"
)

// LayoutOptions mirrors the view toggles that shape geometry.
type LayoutOptions struct {
	Kind           LayoutKind
	Orientation    layout.Orientation
	ShowSeparators bool
	Gaps           layout.Config
}

// Session is one open dialogue document under edit.
type Session struct {
	id        uuid.UUID
	table     *dialogue.Table
	positions map[int]layout.Point
	history   History
	observers []Observer

	dirty    bool
	path     string
	encoding string

	// geometry the composite helpers place new nodes with.
	gaps        layout.Config
	orientation layout.Orientation

	nudging   bool
	pasteBump int
}

// New builds a session over the given rows. Row order is preserved: it is
// the file order the .dlg format round-trips and parent inference reads.
func New(rows []dialogue.Row) (*Session, error) {
	t, err := dialogue.NewTable(rows)
	if err != nil {
		return nil, coded(err)
	}
	return &Session{
		id:        uuid.New(),
		table:     t,
		positions: make(map[int]layout.Point),
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Len returns the number of rows.
func (s *Session) Len() int { return s.table.Len() }

// Rows returns a deep copy of all rows in file order.
func (s *Session) Rows() []dialogue.Row { return s.table.Rows() }

// Row returns a copy of the row with the given index.
func (s *Session) Row(index int) (dialogue.Row, bool) { return s.table.Get(index) }

// Contains reports whether a row with the given index exists.
func (s *Session) Contains(index int) bool { return s.table.Contains(index) }

// Indices returns all row indices in file order.
func (s *Session) Indices() []int { return s.table.Indices() }

// NextFreeIndex returns the smallest unused index above the current
// maximum.
func (s *Session) NextFreeIndex() int { return s.table.NextFreeIndex() }

// Find locates a row by numeric index or case-insensitive text match.
func (s *Session) Find(query string) (dialogue.Row, bool) { return s.table.Find(query) }

// Position returns the scene position of the row with the given index.
func (s *Session) Position(index int) (layout.Point, bool) {
	p, ok := s.positions[index]
	return p, ok
}

// Positions returns a copy of the position table.
func (s *Session) Positions() map[int]layout.Point {
	out := make(map[int]layout.Point, len(s.positions))
	maps.Copy(out, s.positions)
	return out
}

// Snapshot returns independent copies of the rows and positions, suitable
// for handing to background persistence without holding the session.
func (s *Session) Snapshot() ([]dialogue.Row, map[int]layout.Point) {
	return s.table.Rows(), s.Positions()
}

// Dirty reports whether the document changed since it was last saved.
func (s *Session) Dirty() bool { return s.dirty }

// Path returns the source file path, or "" for an unsaved document.
func (s *Session) Path() string { return s.path }

// Encoding returns the text encoding detected when the document was read;
// saves re-encode with it.
func (s *Session) Encoding() string { return s.encoding }

// SetSource records where the document came from and how it was encoded.
func (s *Session) SetSource(path, encoding string) {
	s.path = path
	s.encoding = encoding
}

// MarkSaved records a successful save: the source is updated and the dirty
// flag cleared.
func (s *Session) MarkSaved(path, encoding string) {
	s.SetSource(path, encoding)
	s.dirty = false
}

// History exposes the undo/redo log for inspection.
func (s *Session) History() *History { return &s.history }

// Observe registers fn for change notifications.
func (s *Session) Observe(fn Observer) { s.observers = append(s.observers, fn) }

// SetGeometry records the spacing and orientation the composite helpers
// place new nodes with. Relayout updates both as well.
func (s *Session) SetGeometry(gaps layout.Config, o layout.Orientation) {
	s.gaps = gaps
	s.orientation = o
}

// Apply validates and runs cmd, records it for undo, and drops any redo
// branch. On failure the document is untouched and the history unchanged.
func (s *Session) Apply(cmd Command) error {
	if err := cmd.apply(s); err != nil {
		return err
	}
	s.history.record(cmd)
	s.dirty = true
	s.notify(Event{Kind: EventApply, Command: cmd.Name()})
	return nil
}

// Undo reverts the most recent command and returns its label.
func (s *Session) Undo() (string, error) {
	cmd, ok := s.history.popUndo()
	if !ok {
		return "", apperrors.New(apperrors.ErrCodeNotFound, "nothing to undo")
	}
	if err := cmd.revert(s); err != nil {
		s.history.pushUndo(cmd)
		return "", err
	}
	s.history.pushRedo(cmd)
	s.dirty = true
	s.notify(Event{Kind: EventUndo, Command: cmd.Name()})
	return cmd.Name(), nil
}

// Redo reapplies the most recently undone command and returns its label.
func (s *Session) Redo() (string, error) {
	cmd, ok := s.history.popRedo()
	if !ok {
		return "", apperrors.New(apperrors.ErrCodeNotFound, "nothing to redo")
	}
	if err := cmd.apply(s); err != nil {
		s.history.pushRedo(cmd)
		return "", err
	}
	s.history.pushUndo(cmd)
	s.dirty = true
	s.notify(Event{Kind: EventRedo, Command: cmd.Name()})
	return cmd.Name(), nil
}

// CanUndo reports whether Undo has a command to revert.
func (s *Session) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether Redo has a command to reapply.
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// Relayout recomputes node positions with the selected engine and replaces
// the position table. Parent links are recomputed from file order first,
// and hidden separator rows receive no position. The undo history and the
// dirty flag are left alone. The returned map is the caller's to keep.
func (s *Session) Relayout(opts LayoutOptions) map[int]layout.Point {
	s.gaps = opts.Gaps
	s.orientation = opts.Orientation

	s.table.InferParents()
	rows := dialogue.VisibleRows(s.table.Rows(), opts.ShowSeparators)

	var pts map[int]layout.Point
	if opts.Kind == LayoutForest {
		pts = layout.Forest(rows, opts.Orientation, opts.Gaps)
	} else {
		pts = layout.Layered(rows, nil, opts.Gaps)
	}

	s.positions = make(map[int]layout.Point, len(pts))
	maps.Copy(s.positions, pts)
	s.notify(Event{Kind: EventLayout})
	return pts
}

func (s *Session) notify(ev Event) {
	for _, fn := range s.observers {
		fn(ev)
	}
}

// setPosition is the single write path into the position table; every
// write is observable.
func (s *Session) setPosition(index int, pt layout.Point) {
	s.positions[index] = pt
	s.notify(Event{Kind: EventMove, Index: index})
}

func (s *Session) removePosition(index int) {
	delete(s.positions, index)
}

// movePosition renames a position-table key; the point itself is
// unchanged, so no move event fires.
func (s *Session) movePosition(oldIndex, newIndex int) {
	if p, ok := s.positions[oldIndex]; ok {
		delete(s.positions, oldIndex)
		s.positions[newIndex] = p
	}
}

func (s *Session) shiftPositions(start, delta int) {
	moved := make(map[int]layout.Point, len(s.positions))
	for idx, p := range s.positions {
		if idx >= start {
			idx += delta
		}
		moved[idx] = p
	}
	s.positions = moved
}

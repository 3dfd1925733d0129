package session

import (
	"math"

	"github.com/avfe/dlg4vtmb/pkg/layout"
)

// nudgeMaxSteps bounds the collision walk so chained overlaps cannot march
// a node forever.
const nudgeMaxSteps = 10

// NudgeApart resolves box overlaps around one placed node by shifting it
// just past the nearest edge of whatever it sits on, along the axis of
// least overlap, up to nudgeMaxSteps times. Position writes go through the
// observer path; an in-progress flag short-circuits re-entrant calls from
// those observers. Unplaced indices are ignored.
func (s *Session) NudgeApart(index int) {
	if s.nudging {
		return
	}
	if _, ok := s.positions[index]; !ok {
		return
	}
	s.nudging = true
	defer func() { s.nudging = false }()

	g := s.gaps.WithDefaults()
	w, h := float64(g.NodeW), float64(g.NodeH)

	for range nudgeMaxSteps {
		a := s.positions[index]
		hit, ok := s.firstOverlap(index, a, w, h)
		if !ok {
			return
		}
		b := s.positions[hit]

		dx1 := (a.X + w) - b.X
		dx2 := (b.X + w) - a.X
		dy1 := (a.Y + h) - b.Y
		dy2 := (b.Y + h) - a.Y

		var shift layout.Point
		if min(math.Abs(dx1), math.Abs(dx2)) < min(math.Abs(dy1), math.Abs(dy2)) {
			if math.Abs(dx1) < math.Abs(dx2) {
				shift.X = -(dx1 + 2)
			} else {
				shift.X = dx2 + 2
			}
		} else {
			if math.Abs(dy1) < math.Abs(dy2) {
				shift.Y = -(dy1 + 2)
			} else {
				shift.Y = dy2 + 2
			}
		}
		s.setPosition(index, layout.Point{X: a.X + shift.X, Y: a.Y + shift.Y})
	}
}

// firstOverlap returns the first other placed row, in file order, whose
// node box overlaps the box at a.
func (s *Session) firstOverlap(index int, a layout.Point, w, h float64) (int, bool) {
	for _, idx := range s.table.Indices() {
		if idx == index {
			continue
		}
		b, ok := s.positions[idx]
		if !ok {
			continue
		}
		if a.X < b.X+w && b.X < a.X+w && a.Y < b.Y+h && b.Y < a.Y+h {
			return idx, true
		}
	}
	return 0, false
}

package pipeline

import (
	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/layout"
)

// ComputeLayout runs the selected engine over rows and returns a position
// per visible row. Empty separator rows are excluded unless
// opts.ShowSeparators is set, matching what the render stage draws.
//
// Options must be validated first; any mode other than forest runs the
// layered engine.
func ComputeLayout(rows []dialogue.Row, opts Options) map[int]layout.Point {
	visible := dialogue.VisibleRows(rows, opts.ShowSeparators)
	cfg := opts.LayoutConfig(len(visible))

	if opts.IsForest() {
		return layout.Forest(visible, layout.Orientation(opts.Orientation), cfg)
	}
	return layout.Layered(visible, nil, cfg)
}

package pipeline

import (
	"context"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/render"
)

// Render generates an artifact in the requested format. The DOT graph is
// built from the rows and, for svg and png, run through Graphviz.
//
// Options must be validated first.
func Render(ctx context.Context, rows []dialogue.Row, opts Options) ([]byte, error) {
	t, err := dialogue.NewTable(rows)
	if err != nil {
		return nil, err
	}
	dot := render.ToDOT(t, render.Options{
		ShowSeparators: opts.ShowSeparators,
		LabelLimit:     opts.LabelLimit,
	})
	return render.Render(ctx, dot, opts.Format)
}

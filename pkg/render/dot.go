package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
)

// DefaultLabelLimit is where node body text gets cut off.
const DefaultLabelLimit = 90

// Options configures DOT generation.
type Options struct {
	// ShowSeparators includes blank separator rows, drawn dotted.
	ShowSeparators bool

	// LabelLimit truncates node body text at this many characters.
	// Zero means DefaultLabelLimit.
	LabelLimit int
}

// ToDOT converts a dialogue table to Graphviz DOT. The resulting text
// renders with [Render], or with any external Graphviz install.
//
// Edges only draw between rows that are both present: a reply whose
// target was deleted renders as a lone node, exactly as the analyzer
// reports it (a dangling warning, not an error).
func ToDOT(t *dialogue.Table, opts Options) string {
	limit := opts.LabelLimit
	if limit <= 0 {
		limit = DefaultLabelLimit
	}

	rows := t.Visible(opts.ShowSeparators)
	present := make(map[int]bool, len(rows))
	for _, r := range rows {
		present[r.Index] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph dialogue {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontsize=12, color=\"#555555\", margin=\"0.15,0.08\"];\n")
	buf.WriteString("  edge [color=\"#555555\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.35;\n")
	buf.WriteString("\n")

	for _, r := range rows {
		fmt.Fprintf(&buf, "  %d [%s];\n", r.Index, strings.Join(nodeAttrs(r, limit), ", "))
	}

	buf.WriteString("\n")
	for _, r := range rows {
		if r.IsReply() && present[*r.Next] {
			fmt.Fprintf(&buf, "  %d -> %d;\n", r.Index, *r.Next)
		}
		if r.ParentLine != nil && present[*r.ParentLine] {
			fmt.Fprintf(&buf, "  %d -> %d [style=dashed, color=\"#8a9099\", arrowsize=0.7];\n", *r.ParentLine, r.Index)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(r dialogue.Row, limit int) []string {
	attrs := []string{fmt.Sprintf("label=%q", nodeLabel(r, limit))}
	switch {
	case r.IsEmptySeparator():
		attrs = append(attrs, "shape=box", `style="rounded,dotted"`)
	case r.IsReply():
		attrs = append(attrs, "shape=ellipse", "style=filled", `fillcolor="#fff0e0"`)
	default:
		attrs = append(attrs, "shape=box", `style="rounded,filled"`, `fillcolor="#e0f0ff"`)
	}
	return attrs
}

// nodeLabel formats the canvas header plus the spoken text: replies
// show where they jump, everything else is an NPC line. Body text
// prefers the male column and falls back to the female one.
func nodeLabel(r dialogue.Row, limit int) string {
	header := fmt.Sprintf("#%d  NPC", r.Index)
	if r.IsReply() {
		header = fmt.Sprintf("#%d  PC → %d", r.Index, *r.Next)
	}

	body := r.Male
	if body == "" {
		body = r.Female
	}
	if body == "" {
		return header
	}
	if runes := []rune(body); len(runes) > limit {
		body = string(runes[:limit]) + "..."
	}
	return header + "\n" + body
}

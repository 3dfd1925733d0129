// Package render turns dialogue tables into shareable pictures.
//
// # Overview
//
// Rendering is a two-step affair:
//
//   - [ToDOT] builds a Graphviz DOT digraph from a table: NPC lines as
//     boxes, player replies as ellipses, blank separator rows dotted.
//     Reply jumps (leads-to) draw as solid edges; the answer options an
//     NPC offers draw dashed and gray, matching how the editor's canvas
//     distinguishes the two relations.
//   - [Render] runs Graphviz over the DOT text and emits "svg" or
//     "png" bytes ("dot" passes the text through unchanged).
//
// Rendering uses goccy/go-graphviz, which embeds Graphviz as a WASM
// module, so no external binary is needed:
//
//	dot := render.ToDOT(table, render.Options{})
//	svg, err := render.Render(ctx, dot, render.FormatSVG)
//
// SVG output gets a normalized viewBox so it scales cleanly when
// embedded in documentation or a browser.
package render

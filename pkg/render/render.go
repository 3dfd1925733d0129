package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

// Output formats Render accepts.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Formats lists every output Render accepts, for flag help and
// validation messages.
var Formats = []string{FormatDOT, FormatSVG, FormatPNG}

// Render converts DOT text into the requested format. "dot" returns
// the input unchanged so callers can treat all formats uniformly.
func Render(ctx context.Context, dot string, format string) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		out, err := renderGraphviz(ctx, dot, graphviz.SVG)
		if err != nil {
			return nil, err
		}
		return normalizeViewBox(out), nil
	case FormatPNG:
		return renderGraphviz(ctx, dot, graphviz.PNG)
	default:
		return nil, apperrors.New(apperrors.ErrCodeUnsupported, "unsupported render format %q", format)
	}
}

func renderGraphviz(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeRender, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeRender, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeRender, err, "render %s", format)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root svg element so the picture starts
// at the origin with explicit width and height. Graphviz likes to emit
// offset viewBoxes that clip when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

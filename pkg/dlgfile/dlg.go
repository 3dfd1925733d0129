package dlgfile

import (
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

// fieldCount is the number of brace groups per dialogue line.
const fieldCount = 13

// lineRE matches one dialogue line: thirteen non-greedy brace groups with
// optional whitespace between them. Anchored at the start only; trailing
// junk after the last group is tolerated.
var lineRE = regexp.MustCompile("^" + strings.Repeat(`\{(.*?)\}\s*`, fieldCount-1) + `\{(.*?)\}`)

// Read parses .dlg content from r, sniffing the encoding. It returns the
// rows in file order together with the name of the encoding that decoded
// cleanly; keep that name to write the file back byte-compatible. Lines
// that do not parse are skipped, so the row slice may be empty.
func Read(r io.Reader) ([]dialogue.Row, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrCodeIO, err, "read dialogue data")
	}
	text, encName, err := decodeAuto(data)
	if err != nil {
		return nil, "", err
	}

	var rows []dialogue.Row
	for _, line := range strings.Split(text, "\n") {
		row, ok := parseLine(strings.TrimSpace(line))
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows, encName, nil
}

// Import reads the .dlg file at path. See [Read].
func Import(path string) ([]dialogue.Row, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return Read(f)
}

// Write serializes rows in file order and writes them to w transcoded into
// the named encoding.
func Write(w io.Writer, rows []dialogue.Row, encodingName string) error {
	data, err := encodeAs(formatRows(rows), encodingName)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "write dialogue data")
	}
	return nil
}

// Export writes rows to the .dlg file at path in the named encoding. The
// write is atomic: a sibling temp file is renamed over the target.
func Export(path string, rows []dialogue.Row, encodingName string) error {
	data, err := encodeAs(formatRows(rows), encodingName)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// parseLine decodes one stripped line. ok is false for lines that do not
// match the field shape or whose index or next field is not numeric.
func parseLine(line string) (dialogue.Row, bool) {
	m := lineRE.FindStringSubmatch(line)
	if m == nil {
		return dialogue.Row{}, false
	}
	g := make([]string, fieldCount)
	for i := range g {
		g[i] = strings.ReplaceAll(m[i+1], "]", "}")
	}

	index, err := strconv.Atoi(strings.TrimSpace(g[0]))
	if err != nil {
		return dialogue.Row{}, false
	}
	var next *int
	if s := strings.TrimSpace(g[3]); s != "#" && s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return dialogue.Row{}, false
		}
		next = &n
	}

	return dialogue.Row{
		Index:     index,
		Male:      g[1],
		Female:    g[2],
		Next:      next,
		Condition: g[4],
		Action:    g[5],
		Unknown01: g[6],
		Unknown02: g[7],
		Unknown03: g[8],
		Unknown04: g[9],
		Unknown05: g[10],
		Unknown06: g[11],
		Malkavian: g[12],
	}, true
}

func formatRows(rows []dialogue.Row) string {
	var b strings.Builder
	for _, r := range rows {
		next := "#"
		if r.Next != nil {
			next = strconv.Itoa(*r.Next)
		}
		for _, v := range []string{
			strconv.Itoa(r.Index), r.Male, r.Female, next, r.Condition, r.Action,
			r.Unknown01, r.Unknown02, r.Unknown03,
			r.Unknown04, r.Unknown05, r.Unknown06, r.Malkavian,
		} {
			b.WriteByte('{')
			b.WriteString(strings.ReplaceAll(v, "}", "]"))
			b.WriteByte('}')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

package dlgfile

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

// FormatID identifies the JSON interchange shape written by this package.
const FormatID = "vtmb_dlg_2.0"

const formatNote = "next=null corresponds to '#'. 'parent' is inferred for layout."

// Node is the interchange form of one dialogue row. Next is null for NPC
// lines; Variants always carries all seven canonical slots so the columns
// round-trip explicitly; Parent appears only when a parent is known. The
// bson tags let the MongoDB library store persist the same shape.
type Node struct {
	Index     int               `json:"index" bson:"index"`
	Male      string            `json:"male" bson:"male"`
	Female    string            `json:"female" bson:"female"`
	Next      *int              `json:"next" bson:"next"`
	Condition string            `json:"condition" bson:"condition"`
	Action    string            `json:"action" bson:"action"`
	Variants  map[string]string `json:"variants" bson:"variants"`
	Parent    *int              `json:"parent,omitempty" bson:"parent,omitempty"`
}

// NewNode converts a row into its interchange form.
func NewNode(r dialogue.Row) Node {
	n := Node{
		Index:     r.Index,
		Male:      r.Male,
		Female:    r.Female,
		Condition: r.Condition,
		Action:    r.Action,
		Variants:  r.AllVariants(),
	}
	if r.Next != nil {
		n.Next = dialogue.Ref(*r.Next)
	}
	if r.ParentLine != nil {
		n.Parent = dialogue.Ref(*r.ParentLine)
	}
	return n
}

// Row converts the node back into a dialogue row.
func (n Node) Row() dialogue.Row {
	r := dialogue.Row{
		Index:     n.Index,
		Male:      n.Male,
		Female:    n.Female,
		Condition: n.Condition,
		Action:    n.Action,
	}
	if n.Next != nil {
		r.Next = dialogue.Ref(*n.Next)
	}
	if n.Parent != nil {
		r.ParentLine = dialogue.Ref(*n.Parent)
	}
	r.SetVariants(n.Variants)
	return r
}

// NodesFromRows converts rows in order.
func NodesFromRows(rows []dialogue.Row) []Node {
	out := make([]Node, len(rows))
	for i, r := range rows {
		out[i] = NewNode(r)
	}
	return out
}

// RowsFromNodes converts nodes in order.
func RowsFromNodes(nodes []Node) []dialogue.Row {
	out := make([]dialogue.Row, len(nodes))
	for i, n := range nodes {
		out[i] = n.Row()
	}
	return out
}

type document struct {
	Metadata metadata `json:"metadata" bson:"metadata"`
	Nodes    []Node   `json:"nodes" bson:"nodes"`
}

type metadata struct {
	Format  string   `json:"format" bson:"format"`
	Columns []string `json:"columns" bson:"columns"`
	Note    string   `json:"note" bson:"note"`
}

func columnNames() []string {
	return append([]string{"index", "male", "female", "next", "condition", "action"},
		dialogue.VariantKeys...)
}

// WriteJSON encodes rows as a vtmb_dlg_2.0 document on w, indented, with
// game text left unescaped.
func WriteJSON(w io.Writer, rows []dialogue.Row) error {
	doc := document{
		Metadata: metadata{Format: FormatID, Columns: columnNames(), Note: formatNote},
		Nodes:    NodesFromRows(rows),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "encode dialogue JSON")
	}
	return nil
}

// ExportJSON writes rows to a vtmb_dlg_2.0 file at path. Atomic like
// [Export].
func ExportJSON(path string, rows []dialogue.Row) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, rows); err != nil {
		return err
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// importedNode is the tolerant read-side shape: the index must be present,
// everything else defaults, and the legacy clan nesting is accepted as a
// malkavian fallback.
type importedNode struct {
	Index     *int              `json:"index"`
	Male      string            `json:"male"`
	Female    string            `json:"female"`
	Next      *int              `json:"next"`
	Condition string            `json:"condition"`
	Action    string            `json:"action"`
	Variants  map[string]string `json:"variants"`
	Parent    *int              `json:"parent"`
	Clan      map[string]string `json:"clan"`
}

// ReadJSON decodes a vtmb_dlg_2.0 document from r. Node entries that do not
// unmarshal, or that lack an index, are skipped; a document without a nodes
// array is an error.
func ReadJSON(r io.Reader) ([]dialogue.Row, error) {
	var doc struct {
		Nodes *[]json.RawMessage `json:"nodes"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeDecode, err, "decode dialogue JSON")
	}
	if doc.Nodes == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidFormat, "document has no nodes array")
	}

	rows := make([]dialogue.Row, 0, len(*doc.Nodes))
	for _, raw := range *doc.Nodes {
		var n importedNode
		if err := json.Unmarshal(raw, &n); err != nil || n.Index == nil {
			continue
		}

		variants := n.Variants
		if variants == nil {
			variants = make(map[string]string, 1)
		}
		if variants["malkavian"] == "" {
			if v, ok := n.Clan["malkavian"]; ok {
				variants["malkavian"] = v
			}
		}

		row := dialogue.Row{
			Index:     *n.Index,
			Male:      n.Male,
			Female:    n.Female,
			Condition: n.Condition,
			Action:    n.Action,
		}
		if n.Next != nil {
			row.Next = dialogue.Ref(*n.Next)
		}
		if n.Parent != nil {
			row.ParentLine = dialogue.Ref(*n.Parent)
		}
		row.SetVariants(variants)
		rows = append(rows, row)
	}
	return rows, nil
}

// ImportJSON reads the vtmb_dlg_2.0 file at path. See [ReadJSON].
func ImportJSON(path string) ([]dialogue.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}

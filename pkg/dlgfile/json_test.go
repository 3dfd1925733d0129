package dlgfile

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

func TestWriteJSONShape(t *testing.T) {
	rows := []dialogue.Row{
		{Index: 1, Male: "Hello", Condition: "npc.money > 5"},
		{Index: 2, Male: "Hi", Next: dialogue.Ref(1), ParentLine: dialogue.Ref(1), Malkavian: "buzz"},
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, rows); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}

	var doc struct {
		Metadata struct {
			Format  string   `json:"format"`
			Columns []string `json:"columns"`
			Note    string   `json:"note"`
		} `json:"metadata"`
		Nodes []map[string]any `json:"nodes"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if doc.Metadata.Format != FormatID {
		t.Errorf("format = %q, want %q", doc.Metadata.Format, FormatID)
	}
	if len(doc.Metadata.Columns) != 6+len(dialogue.VariantKeys) {
		t.Errorf("columns = %v, want the six base fields plus variants", doc.Metadata.Columns)
	}
	if doc.Metadata.Note == "" {
		t.Error("note should explain the null-next convention")
	}
	if len(doc.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(doc.Nodes))
	}

	npc := doc.Nodes[0]
	if v, present := npc["next"]; !present || v != nil {
		t.Errorf("NPC line next = %v (present %v), want explicit null", v, present)
	}
	if _, present := npc["parent"]; present {
		t.Error("parent should be omitted when unknown")
	}
	variants, _ := npc["variants"].(map[string]any)
	if len(variants) != len(dialogue.VariantKeys) {
		t.Errorf("variants = %v, want all %d slots", variants, len(dialogue.VariantKeys))
	}

	reply := doc.Nodes[1]
	if reply["next"] != float64(1) || reply["parent"] != float64(1) {
		t.Errorf("reply next/parent = %v/%v, want 1/1", reply["next"], reply["parent"])
	}
	rv, _ := reply["variants"].(map[string]any)
	if rv["malkavian"] != "buzz" {
		t.Errorf("malkavian = %v, want buzz", rv["malkavian"])
	}

	// Game text must not be HTML-escaped.
	if !strings.Contains(buf.String(), "npc.money > 5") {
		t.Error("condition text should round trip unescaped")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	rows := []dialogue.Row{
		{Index: 1, Male: "Line", Female: "Её текст", Action: "do()"},
		{Index: 5, Male: "Reply", Next: dialogue.Ref(1), ParentLine: dialogue.Ref(1),
			Unknown03: "slot", Malkavian: "fish"},
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, rows); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, rows)
	}
}

func TestReadJSONTolerance(t *testing.T) {
	input := `{
	  "nodes": [
	    {"index": 7, "male": "ok"},
	    {"index": "junk"},
	    {"male": "no index"},
	    {"index": 8, "male": "legacy", "clan": {"malkavian": "mmm"}},
	    {"index": 9, "male": "kept", "variants": {"malkavian": "real"},
	     "clan": {"malkavian": "ignored"}},
	    {"index": 10, "next": null, "parent": 7}
	  ]
	}`

	rows, err := ReadJSON(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4 (malformed entries skipped)", len(rows))
	}
	if rows[0].Index != 7 || rows[0].Male != "ok" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Malkavian != "mmm" {
		t.Errorf("legacy clan nesting: malkavian = %q, want mmm", rows[1].Malkavian)
	}
	if rows[2].Malkavian != "real" {
		t.Errorf("variants should win over legacy clan: got %q", rows[2].Malkavian)
	}
	if rows[3].Next != nil {
		t.Errorf("null next should stay nil, got %v", rows[3].Next)
	}
	if rows[3].ParentLine == nil || *rows[3].ParentLine != 7 {
		t.Errorf("parent = %v, want 7", rows[3].ParentLine)
	}
}

func TestReadJSONErrors(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`{"metadata": {}}`))
	if !apperrors.Is(err, apperrors.ErrCodeInvalidFormat) {
		t.Errorf("missing nodes error = %v, want INVALID_FORMAT", err)
	}

	_, err = ReadJSON(strings.NewReader(`{"nodes": [`))
	if !apperrors.Is(err, apperrors.ErrCodeDecode) {
		t.Errorf("broken JSON error = %v, want DECODE_ERROR", err)
	}
}

func TestExportImportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialogue.json")
	rows := []dialogue.Row{
		{Index: 1, Male: "Hello"},
		{Index: 2, Male: "Bye", Next: dialogue.Ref(1), ParentLine: dialogue.Ref(1)},
	}

	if err := ExportJSON(path, rows); err != nil {
		t.Fatalf("ExportJSON error: %v", err)
	}
	got, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON error: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("file round trip mismatch:\ngot  %+v\nwant %+v", got, rows)
	}
}

func TestNodeRowConversion(t *testing.T) {
	r := dialogue.Row{Index: 3, Male: "m", Next: dialogue.Ref(1), Unknown02: "u2"}
	n := NewNode(r)
	if n.Variants["unknown02"] != "u2" || n.Variants["malkavian"] != "" {
		t.Errorf("Variants = %v, want every slot present", n.Variants)
	}
	back := n.Row()
	if !reflect.DeepEqual(back, r) {
		t.Errorf("Node.Row() = %+v, want %+v", back, r)
	}
}

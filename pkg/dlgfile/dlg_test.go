package dlgfile

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

const blanks = "{}{}{}{}{}{}{}{}{}"

func TestReadParsesLines(t *testing.T) {
	input := strings.Join([]string{
		"{1}{Hello}{}{#}" + blanks,
		"{2}{Yes] sir}{Her text}{1}{cond}{act}{a}{b}{c}{d}{e}{f}{malk}",
		"Header junk the game files carry",
		"{3}{bad next}{}{x}" + blanks,
		"  {4} {Spaced} {} {#} {}{}{}{}{}{}{}{}{}  ",
		"",
	}, "\n")

	rows, enc, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if enc != "utf-8-sig" {
		t.Errorf("encoding = %q, want utf-8-sig", enc)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (junk and bad-next skipped)", len(rows))
	}

	if rows[0].Index != 1 || rows[0].Male != "Hello" || rows[0].Next != nil {
		t.Errorf("row 0 = %+v, want NPC line 1 'Hello'", rows[0])
	}

	r := rows[1]
	if r.Index != 2 || r.Male != "Yes} sir" {
		t.Errorf("']' should unescape to '}': got %q", r.Male)
	}
	if r.Next == nil || *r.Next != 1 {
		t.Errorf("row 1 Next = %v, want 1", r.Next)
	}
	if r.Female != "Her text" || r.Condition != "cond" || r.Action != "act" {
		t.Errorf("row 1 text fields = %+v", r)
	}
	if r.Unknown01 != "a" || r.Unknown06 != "f" || r.Malkavian != "malk" {
		t.Errorf("row 1 variants = %+v", r)
	}

	if rows[2].Index != 4 || rows[2].Male != "Spaced" {
		t.Errorf("whitespace between groups should parse: got %+v", rows[2])
	}
}

func TestReadDetectsCP1251(t *testing.T) {
	// "Привет" in cp1251 bytes; invalid as utf-8.
	line := append([]byte("{1}{"), 0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2)
	line = append(line, []byte("}{}{#}"+blanks+"\n")...)

	rows, enc, err := Read(bytes.NewReader(line))
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if enc != "cp1251" {
		t.Errorf("encoding = %q, want cp1251", enc)
	}
	if len(rows) != 1 || rows[0].Male != "Привет" {
		t.Errorf("rows = %+v, want one line saying Привет", rows)
	}
}

func TestReadToleratesBOM(t *testing.T) {
	input := "\xef\xbb\xbf{1}{Hi}{}{#}" + blanks + "\n"
	rows, enc, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if enc != "utf-8-sig" {
		t.Errorf("encoding = %q, want utf-8-sig", enc)
	}
	if len(rows) != 1 || rows[0].Index != 1 || rows[0].Male != "Hi" {
		t.Errorf("rows = %+v, want index 1 'Hi'", rows)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	rows := []dialogue.Row{
		{Index: 1, Male: "Скажи }это{", Female: "Ж", Condition: "npc.money > 5"},
		{Index: 2, Male: "Ответ", Next: dialogue.Ref(1), Malkavian: "шёпот"},
	}

	var buf bytes.Buffer
	if err := Write(&buf, rows, "cp1251"); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	// Only field terminators may surface as '}' bytes; the brace inside the
	// text must have escaped to ']'.
	if n := bytes.Count(buf.Bytes(), []byte("}")); n != 2*fieldCount {
		t.Errorf("found %d '}' bytes, want %d", n, 2*fieldCount)
	}

	got, enc, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if enc != "cp1251" {
		t.Errorf("round-trip encoding = %q, want cp1251", enc)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, rows)
	}
}

func TestWriteBOMAndPlainUTF8(t *testing.T) {
	rows := []dialogue.Row{{Index: 1, Male: "Hi"}}

	var sig bytes.Buffer
	if err := Write(&sig, rows, "utf-8-sig"); err != nil {
		t.Fatalf("Write(utf-8-sig) error: %v", err)
	}
	if !bytes.HasPrefix(sig.Bytes(), []byte("\xef\xbb\xbf")) {
		t.Error("utf-8-sig output should start with a BOM")
	}

	var plain bytes.Buffer
	if err := Write(&plain, rows, "utf-8"); err != nil {
		t.Fatalf("Write(utf-8) error: %v", err)
	}
	if bytes.HasPrefix(plain.Bytes(), []byte("\xef\xbb\xbf")) {
		t.Error("utf-8 output should not carry a BOM")
	}
}

func TestWriteRejectsBadEncoding(t *testing.T) {
	rows := []dialogue.Row{{Index: 1, Male: "Hi"}}

	err := Write(&bytes.Buffer{}, rows, "koi8-r")
	if !apperrors.Is(err, apperrors.ErrCodeUnsupported) {
		t.Errorf("unknown encoding error = %v, want UNSUPPORTED", err)
	}

	// Text outside the target charset.
	err = Write(&bytes.Buffer{}, []dialogue.Row{{Index: 1, Male: "日本語"}}, "cp1251")
	if !apperrors.Is(err, apperrors.ErrCodeUnsupported) {
		t.Errorf("unencodable text error = %v, want UNSUPPORTED", err)
	}
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.dlg")
	rows := []dialogue.Row{
		{Index: 1, Male: "Hello"},
		{Index: 2, Male: "Bye", Next: dialogue.Ref(1)},
	}

	if err := Export(path, rows, DefaultEncoding); err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}

	got, enc, err := Import(path)
	if err != nil {
		t.Fatalf("Import error: %v", err)
	}
	if enc != DefaultEncoding {
		t.Errorf("encoding = %q, want %q", enc, DefaultEncoding)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("file round trip mismatch:\ngot  %+v\nwant %+v", got, rows)
	}
}

func TestExportFailureKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.dlg")
	if err := Export(path, []dialogue.Row{{Index: 1, Male: "old"}}, "cp1251"); err != nil {
		t.Fatalf("Export error: %v", err)
	}

	err := Export(path, []dialogue.Row{{Index: 1, Male: "新"}}, "cp1251")
	if !apperrors.Is(err, apperrors.ErrCodeUnsupported) {
		t.Fatalf("Export error = %v, want UNSUPPORTED", err)
	}

	rows, _, err := Import(path)
	if err != nil {
		t.Fatalf("Import error: %v", err)
	}
	if len(rows) != 1 || rows[0].Male != "old" {
		t.Errorf("failed export must leave the target intact, got %+v", rows)
	}
}

func TestImportMissingFile(t *testing.T) {
	_, _, err := Import(filepath.Join(t.TempDir(), "nope.dlg"))
	if !apperrors.Is(err, apperrors.ErrCodeIO) {
		t.Errorf("missing file error = %v, want IO_ERROR", err)
	}
}

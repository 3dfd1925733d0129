package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

// Load reads the dialogue file at path, picking the codec by extension:
// .json is the editor's JSON export format, everything else is parsed as a
// game .dlg file with encoding sniffing. Returns the rows in file order and
// the name of the encoding that decoded them.
func Load(path string) ([]dialogue.Row, string, error) {
	if path == "" {
		return nil, "", apperrors.New(apperrors.ErrCodeInvalidInput, "path is required")
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		rows, err := dlgfile.ImportJSON(path)
		return rows, dlgfile.JSONEncoding, err
	}
	return dlgfile.Import(path)
}

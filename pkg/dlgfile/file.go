package dlgfile

import (
	"os"

	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

// WriteFileAtomic writes data to a sibling ".tmp" file and renames it over
// path, so the target is never left half-written. Every save in this module
// goes through it, including the library store and autosave sidecars.
func WriteFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.ErrCodeIO, err, "finalize %s", path)
	}
	return nil
}

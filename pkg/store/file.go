package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
)

// FileStore keeps one JSON file per document under a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based library store. If baseDir is empty
// it defaults to $XDG_DATA_HOME/dlg4vtmb/library (~/.local/share when
// the variable is unset).
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := defaultLibraryDir()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "resolve library dir")
		}
		baseDir = dir
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "create library dir")
	}
	return &FileStore{baseDir: baseDir}, nil
}

func defaultLibraryDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "dlg4vtmb", "library"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "dlg4vtmb", "library"), nil
}

func (s *FileStore) docPath(name string) string {
	return filepath.Join(s.baseDir, name+".json")
}

// Put stores the document under its name, bumping the revision. The
// identity of an existing document is kept even when the caller's copy
// carries a different ID.
func (s *FileStore) Put(ctx context.Context, doc *Document) error {
	if err := validateName(doc.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.load(doc.Name)
	if err != nil && apperrors.GetCode(err) != apperrors.ErrCodeDocumentNotFound {
		return err
	}
	if prev != nil {
		doc.ID = prev.ID
		doc.Revision = prev.Revision + 1
	} else {
		if doc.ID == uuid.Nil {
			doc.ID = uuid.New()
		}
		doc.Revision = 1
	}
	doc.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "marshal document %q", doc.Name)
	}
	if err := dlgfile.WriteFileAtomic(s.docPath(doc.Name), data); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "store document %q", doc.Name)
	}
	return nil
}

// Get retrieves a document by name.
func (s *FileStore) Get(ctx context.Context, name string) (*Document, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(name)
}

// load reads one document file. Caller holds the lock.
func (s *FileStore) load(name string) (*Document, error) {
	data, err := os.ReadFile(s.docPath(name))
	if os.IsNotExist(err) {
		return nil, apperrors.New(apperrors.ErrCodeDocumentNotFound, "no document named %q", name)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "read document %q", name)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "parse document %q", name)
	}
	return &doc, nil
}

// List returns a listing of every document, sorted by name. Files that
// do not parse as documents are skipped.
func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "read library dir")
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		doc, err := s.load(name)
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			ID:        doc.ID,
			Name:      doc.Name,
			RowCount:  len(doc.Rows),
			UpdatedAt: doc.UpdatedAt,
			Revision:  doc.Revision,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Delete removes a document by name.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.docPath(name))
	if os.IsNotExist(err) {
		return apperrors.New(apperrors.ErrCodeDocumentNotFound, "no document named %q", name)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStore, err, "remove document %q", name)
	}
	return nil
}

// Close does nothing for the file backend.
func (s *FileStore) Close() error { return nil }

// Path returns the library directory.
func (s *FileStore) Path() string { return s.baseDir }

var _ Store = (*FileStore)(nil)

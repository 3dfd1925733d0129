package recovery

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/avfe/dlg4vtmb/pkg/cache"
	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/layout"
	"github.com/avfe/dlg4vtmb/pkg/session"
)

// dirtySession builds a session with unsaved work attributed to path.
func dirtySession(t *testing.T, path string) *session.Session {
	t.Helper()
	s, err := session.New([]dialogue.Row{
		{Index: 1, Male: "Hello"},
		{Index: 2, Male: "Goodbye", Next: dialogue.Ref(1), ParentLine: dialogue.Ref(1)},
	})
	if err != nil {
		t.Fatalf("session.New error: %v", err)
	}
	s.SetSource(path, "utf-8-sig")
	if err := s.Apply(&session.Move{Index: 2, NewPos: layout.Point{X: 10, Y: 20}}); err != nil {
		t.Fatalf("Move error: %v", err)
	}
	return s
}

func TestAutosaveAndRestore(t *testing.T) {
	docPath := filepath.Join(t.TempDir(), "banter.dlg")
	s := dirtySession(t, docPath)

	a := NewAutosaver(s, Options{Lock: &sync.Mutex{}})
	a.tick()

	side, ok := Check(docPath)
	if !ok {
		t.Fatalf("Check after autosave = false, want true (%s)", side)
	}

	rows, positions, err := Restore(docPath)
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if !reflect.DeepEqual(rows, s.Rows()) {
		t.Errorf("restored rows unexpected: %+v", rows)
	}
	if got := positions[2]; got != (layout.Point{X: 10, Y: 20}) {
		t.Errorf("restored position unexpected: %+v", got)
	}
}

func TestAutosaveSkipsCleanSession(t *testing.T) {
	docPath := filepath.Join(t.TempDir(), "banter.dlg")
	s, err := session.New([]dialogue.Row{{Index: 1, Male: "Hello"}})
	if err != nil {
		t.Fatalf("session.New error: %v", err)
	}
	s.SetSource(docPath, "utf-8-sig")

	a := NewAutosaver(s, Options{})
	a.tick()

	if _, ok := Check(docPath); ok {
		t.Error("clean session should not autosave")
	}
}

func TestAutosaverLifecycle(t *testing.T) {
	docPath := filepath.Join(t.TempDir(), "banter.dlg")
	s := dirtySession(t, docPath)

	var mu sync.Mutex
	a := NewAutosaver(s, Options{Interval: 10 * time.Millisecond, Lock: &mu})
	a.Start()
	defer a.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := Check(docPath); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("autosave sidecar never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Stop performs a final snapshot and may be called repeatedly.
	a.Stop()
}

func TestCheckStaleSidecar(t *testing.T) {
	docPath := filepath.Join(t.TempDir(), "banter.dlg")
	s := dirtySession(t, docPath)
	NewAutosaver(s, Options{}).tick()

	// A save that failed to clear the sidecar leaves the source newer.
	if err := os.WriteFile(docPath, []byte("{1}{}{}{#}{}{}{}{}{}{}{}{}{}\n"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	side, err := SidecarPath(docPath)
	if err != nil {
		t.Fatalf("SidecarPath error: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(side, past, past); err != nil {
		t.Fatalf("age sidecar: %v", err)
	}

	if _, ok := Check(docPath); ok {
		t.Error("sidecar older than the source should not offer recovery")
	}
}

func TestRestoreErrors(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "none.dlg")
	if _, _, err := Restore(missing); apperrors.GetCode(err) != apperrors.ErrCodeNotFound {
		t.Errorf("Restore missing error = %v, want NOT_FOUND", err)
	}

	corrupt := filepath.Join(dir, "bad.dlg")
	side, _ := SidecarPath(corrupt)
	if err := os.WriteFile(side, []byte("not json"), 0644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
	if _, _, err := Restore(corrupt); apperrors.GetCode(err) != apperrors.ErrCodeDecode {
		t.Errorf("Restore corrupt error = %v, want DECODE_ERROR", err)
	}

	empty := filepath.Join(dir, "empty.dlg")
	side, _ = SidecarPath(empty)
	if err := os.WriteFile(side, []byte(`{"nodes": []}`), 0644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
	if _, _, err := Restore(empty); apperrors.GetCode(err) != apperrors.ErrCodeInvalidFormat {
		t.Errorf("Restore empty error = %v, want INVALID_FORMAT", err)
	}
}

func TestClear(t *testing.T) {
	docPath := filepath.Join(t.TempDir(), "banter.dlg")
	s := dirtySession(t, docPath)
	NewAutosaver(s, Options{}).tick()

	if err := Clear(docPath); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, ok := Check(docPath); ok {
		t.Error("Clear should remove the sidecar")
	}
	if err := Clear(docPath); err != nil {
		t.Errorf("Clear with no sidecar error: %v", err)
	}
}

func TestAutosaveCacheMirror(t *testing.T) {
	docPath := filepath.Join(t.TempDir(), "banter.dlg")
	s := dirtySession(t, docPath)

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	a := NewAutosaver(s, Options{Cache: c})
	a.tick()

	key := cache.NewDefaultKeyer().RecoveryKey(s.ID().String())
	data, hit, err := c.Get(context.Background(), key)
	if err != nil || !hit {
		t.Fatalf("recovery key missing: hit=%v err=%v", hit, err)
	}
	var snap sidecar
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("mirror payload does not parse: %v", err)
	}
	if len(snap.Nodes) != 2 {
		t.Errorf("mirrored %d nodes, want 2", len(snap.Nodes))
	}
}

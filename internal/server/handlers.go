package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	apperrors "github.com/avfe/dlg4vtmb/pkg/errors"
	"github.com/avfe/dlg4vtmb/pkg/observability"
	"github.com/avfe/dlg4vtmb/pkg/pipeline"
	"github.com/avfe/dlg4vtmb/pkg/recovery"
)

// docResponse summarizes the open document.
type docResponse struct {
	SessionID  string `json:"session_id"`
	Path       string `json:"path,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Rows       int    `json:"rows"`
	Components int    `json:"components"`
	Dirty      bool   `json:"dirty"`
	CanUndo    bool   `json:"can_undo"`
	CanRedo    bool   `json:"can_redo"`
}

func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := docResponse{
		SessionID:  s.sess.ID().String(),
		Path:       s.sess.Path(),
		Encoding:   s.sess.Encoding(),
		Rows:       s.sess.Len(),
		Components: len(dialogue.Components(s.sess.Rows())),
		Dirty:      s.sess.Dirty(),
		CanUndo:    s.sess.CanUndo(),
		CanRedo:    s.sess.CanRedo(),
	}
	s.mu.Unlock()

	s.respond(w, http.StatusOK, resp)
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := s.sess.Rows()
	s.mu.Unlock()

	nodes := dlgfile.NodesFromRows(rows)
	s.respond(w, http.StatusOK, map[string]any{
		"count": len(nodes),
		"rows":  nodes,
	})
}

func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := s.sess.Rows()
	s.mu.Unlock()

	comps := dialogue.Components(rows)
	s.respond(w, http.StatusOK, map[string]any{
		"count":      len(comps),
		"components": comps,
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := layoutOptions(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.mu.Lock()
	rows := s.sess.Rows()
	s.mu.Unlock()

	positions, err := s.runner.ComputeLayout(r.Context(), rows, opts)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"mode":        opts.Mode,
		"orientation": opts.Orientation,
		"count":       len(positions),
		"positions":   positions,
	})
}

// layoutOptions reads the layout query parameters: mode, orientation,
// hgap, vgap, auto_gaps, show_separators.
func layoutOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Mode:           q.Get("mode"),
		Orientation:    q.Get("orientation"),
		AutoGaps:       q.Get("auto_gaps") == "true",
		ShowSeparators: q.Get("show_separators") == "true",
	}

	var err error
	if opts.HGap, err = intParam(q, "hgap"); err != nil {
		return opts, err
	}
	if opts.VGap, err = intParam(q, "vgap"); err != nil {
		return opts, err
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func intParam(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.New(apperrors.ErrCodeInvalidInput,
			"%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		s.respondError(w, apperrors.New(apperrors.ErrCodeInvalidInput,
			"index must be an integer, got %q", raw))
		return
	}

	s.mu.Lock()
	rows := s.sess.Rows()
	s.mu.Unlock()

	paths, err := dialogue.TraceUpstream(rows, index, dialogue.TraceOptions{})
	if err != nil {
		if errors.Is(err, dialogue.ErrUnknownIndex) {
			err = apperrors.Wrap(apperrors.ErrCodeIndexNotFound, err,
				"no row with index %d", index)
		}
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"index": index,
		"count": len(paths),
		"paths": paths,
	})
}

// commandResponse reports the session state after a successful mutation.
type commandResponse struct {
	Applied string `json:"applied"`
	Rows    int    `json:"rows"`
	Dirty   bool   `json:"dirty"`
	CanUndo bool   `json:"can_undo"`
	CanRedo bool   `json:"can_redo"`
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	var env commandEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.respondError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "parse command body"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, err := s.command(env)
	if err != nil {
		s.respondError(w, err)
		return
	}

	start := time.Now()
	err = s.sess.Apply(cmd)
	observability.Session().OnCommand(r.Context(), cmd.Name(), time.Since(start), err)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respond(w, http.StatusOK, commandResponse{
		Applied: cmd.Name(),
		Rows:    s.sess.Len(),
		Dirty:   s.sess.Dirty(),
		CanUndo: s.sess.CanUndo(),
		CanRedo: s.sess.CanRedo(),
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.sess.Undo()
	if err != nil {
		s.respondError(w, err)
		return
	}
	observability.Session().OnUndo(r.Context(), name)

	s.respond(w, http.StatusOK, map[string]any{
		"undone":   name,
		"can_undo": s.sess.CanUndo(),
		"can_redo": s.sess.CanRedo(),
	})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.sess.Redo()
	if err != nil {
		s.respondError(w, err)
		return
	}
	observability.Session().OnRedo(r.Context(), name)

	s.respond(w, http.StatusOK, map[string]any{
		"redone":   name,
		"can_undo": s.sess.CanUndo(),
		"can_redo": s.sess.CanRedo(),
	})
}

// saveRequest optionally overrides where and how the document is written.
type saveRequest struct {
	Path     string `json:"path,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "parse save body"))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := req.Path
	if path == "" {
		path = s.sess.Path()
	}
	if path == "" {
		s.respondError(w, apperrors.New(apperrors.ErrCodeInvalidInput,
			"document has no path; supply one in the request body"))
		return
	}
	encoding := req.Encoding
	if encoding == "" {
		encoding = s.sess.Encoding()
	}

	rows := s.sess.Rows()
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		encoding = dlgfile.JSONEncoding
		err = dlgfile.ExportJSON(path, rows)
	} else {
		if encoding == "" {
			encoding = dlgfile.DefaultEncoding
		}
		err = dlgfile.Export(path, rows, encoding)
	}
	observability.Session().OnSave(r.Context(), path, err)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.sess.MarkSaved(path, encoding)
	if err := recovery.Clear(path); err != nil {
		s.logger.Debug("clear autosave failed", "path", path, "err", err)
	}

	s.respond(w, http.StatusOK, map[string]any{
		"path":     path,
		"encoding": encoding,
		"rows":     len(rows),
		"dirty":    false,
	})
}

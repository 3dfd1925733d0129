// Package server exposes one editing session over a JSON HTTP API.
//
// The server owns a single session guarded by a mutex: mutating requests
// (commands, undo, redo, save) serialize through it, and read endpoints
// take it only long enough to snapshot the rows. Layout results for read
// endpoints come from a pipeline.Runner, so web clients share cache
// entries with the CLI.
//
// Routes, all under /api and all JSON:
//
//	GET  /doc            document summary (path, encoding, counts, dirty)
//	GET  /rows           all rows in file order
//	GET  /components     connected components over the derived relations
//	GET  /layout         positions from the layered or forest engine
//	GET  /trace/{index}  upstream conversation paths reaching one row
//	POST /commands       apply one editing command
//	POST /undo           revert the most recent command
//	POST /redo           reapply the most recently undone command
//	POST /save           write the document back to disk
package server

import (
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avfe/dlg4vtmb/pkg/pipeline"
	"github.com/avfe/dlg4vtmb/pkg/session"
)

// Server hosts one session behind the JSON API.
type Server struct {
	mu     sync.Mutex
	sess   *session.Session
	runner *pipeline.Runner
	logger *log.Logger
}

// New creates a server around sess.
// If runner is nil, an uncached one is used.
// If logger is nil, the default logger is used.
func New(sess *session.Session, runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	return &Server{sess: sess, runner: runner, logger: logger}
}

// Locker exposes the session guard, so an autosaver snapshotting the same
// session serializes with request handling.
func (s *Server) Locker() sync.Locker { return &s.mu }

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(api chi.Router) {
		api.Get("/doc", s.handleDoc)
		api.Get("/rows", s.handleRows)
		api.Get("/components", s.handleComponents)
		api.Get("/layout", s.handleLayout)
		api.Get("/trace/{index}", s.handleTrace)
		api.Post("/commands", s.handleCommands)
		api.Post("/undo", s.handleUndo)
		api.Post("/redo", s.handleRedo)
		api.Post("/save", s.handleSave)
	})
	return r
}

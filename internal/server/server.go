// Package server exposes a workflow session over a local HTTP API.
//
// The API is the canvas's view of the session: a browser front end posts
// node, edge and config events and re-reads the graph. All requests are
// applied to one session under a single mutex, so events take effect in
// the order they arrive.
//
// # Routes
//
//	GET    /api/graph                 current nodes, edges and undo/redo state
//	GET    /api/types                 node type menu with defaults and required fields
//	GET    /api/version               build information
//	POST   /api/nodes                 add a node {type, position}
//	PATCH  /api/nodes/{id}            submit config form data (422 on invalid fields)
//	PUT    /api/nodes/{id}/position   move a node
//	DELETE /api/nodes/{id}            delete a node and its edges
//	POST   /api/edges                 connect {source, target, sourceHandle?, targetHandle?}
//	DELETE /api/edges/{id}            delete an edge
//	POST   /api/selection             select {id, selected}
//	DELETE /api/selection             delete all selected nodes and edges
//	POST   /api/undo                  undo
//	POST   /api/redo                  redo
//	GET    /api/export                download the export document
//	POST   /api/import                replace the graph with an export document
//	GET    /api/render.svg            Graphviz rendering of the graph
//
// Errors are returned as {"code", "message", "fields"?}.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flowcraft/pkg/cache"
	"github.com/matzehuels/flowcraft/pkg/observability"
	"github.com/matzehuels/flowcraft/pkg/session"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 16 << 20

// Options configures a Server.
type Options struct {
	// Store, when set, receives the session state after every change.
	Store session.Store

	// Logger receives persistence failures. Nil uses log.Default().
	Logger *log.Logger

	// Renders caches rendered diagrams. Nil disables caching.
	Renders cache.Cache

	// MaxImportBytes bounds import documents. Zero uses 16 MiB.
	MaxImportBytes int64
}

// Server serves one session.
type Server struct {
	mu      sync.Mutex
	sess    *session.Session
	store   session.Store
	logger  *log.Logger
	renders cache.Cache
	maxBody int64
	router  chi.Router
}

// New creates a server for sess.
func New(sess *session.Session, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Renders == nil {
		opts.Renders = cache.NewNullCache()
	}
	if opts.MaxImportBytes <= 0 {
		opts.MaxImportBytes = maxBodyBytes
	}
	s := &Server{
		sess:    sess,
		store:   opts.Store,
		logger:  opts.Logger,
		renders: opts.Renders,
		maxBody: opts.MaxImportBytes,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(hooks)

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/types", s.handleTypes)
		r.Get("/version", handleVersion)

		r.Post("/nodes", s.handleAddNode)
		r.Patch("/nodes/{id}", s.handleSubmitConfig)
		r.Put("/nodes/{id}/position", s.handleMoveNode)
		r.Delete("/nodes/{id}", s.handleDeleteNode)

		r.Post("/edges", s.handleConnect)
		r.Delete("/edges/{id}", s.handleDeleteEdge)

		r.Post("/selection", s.handleSelect)
		r.Delete("/selection", s.handleDeleteSelected)

		r.Post("/undo", s.handleUndo)
		r.Post("/redo", s.handleRedo)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Get("/render.svg", s.handleRender)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// persist saves the session if a store is configured. Failures are logged,
// not returned; the in-memory session stays authoritative.
func (s *Server) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.sess.Persist(ctx, s.store); err != nil {
		s.logger.Error("persist workspace", "err", err)
	}
}

// hooks reports each request to the registered observability HTTP hooks.
func hooks(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := observability.HTTP()
		h.OnRequest(r.Context(), r.Method, r.URL.Path)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
	})
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowcraft/pkg/buildinfo"
	"github.com/matzehuels/flowcraft/pkg/cache"
	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/nodetype"
	"github.com/matzehuels/flowcraft/pkg/render"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// =============================================================================
// Payloads
// =============================================================================

type graphResponse struct {
	Nodes   []workflow.Node `json:"nodes"`
	Edges   []workflow.Edge `json:"edges"`
	CanUndo bool            `json:"canUndo"`
	CanRedo bool            `json:"canRedo"`
}

type typeResponse struct {
	Type        nodetype.Kind   `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Handles     []string        `json:"handles,omitempty"`
	Required    []string        `json:"required"`
	Defaults    nodetype.Fields `json:"defaults"`
}

type addNodeRequest struct {
	Type     nodetype.Kind     `json:"type"`
	Position workflow.Position `json:"position"`
}

type selectRequest struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

type deletedResponse struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

type errorResponse struct {
	Code    ferrors.Code         `json:"code"`
	Message string               `json:"message"`
	Fields  []ferrors.FieldError `json:"fields,omitempty"`
}

// =============================================================================
// Reads
// =============================================================================

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.graph())
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	reg := s.sess.Registry()
	specs := reg.Specs()
	out := make([]typeResponse, len(specs))
	for i, spec := range specs {
		out[i] = typeResponse{
			Type:        spec.Kind,
			Title:       spec.Title,
			Description: spec.Description,
			Handles:     spec.Handles,
			Required:    spec.Required,
			Defaults:    spec.New().Fields(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="workflow.json"`)
	if err := s.sess.Export(r.Context(), w); err != nil {
		s.logger.Error("export", "err", err)
	}
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	dot := render.ToDOT(s.sess.Snapshot(), render.Options{Detailed: r.URL.Query().Get("detailed") == "true"})
	s.mu.Unlock()

	svg, hit, err := cache.GetOrCompute(r.Context(), s.renders, cache.RenderKey("svg", dot), cache.DefaultTTL,
		func() ([]byte, error) { return render.RenderSVG(r.Context(), dot) })
	if err != nil {
		writeError(w, ferrors.Wrap(ferrors.ErrCodeInternal, err, "render"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if hit {
		w.Header().Set("X-Cache", "hit")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

// =============================================================================
// Node events
// =============================================================================

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.sess.AddNode(r.Context(), req.Type, req.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persist(r.Context())
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleSubmitConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch nodetype.Fields
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sess.SubmitConfig(r.Context(), id, patch); err != nil {
		writeError(w, err)
		return
	}
	s.persist(r.Context())
	n, _ := s.sess.Node(id)
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var pos workflow.Position
	if err := decodeBody(r, &pos); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sess.MoveNode(r.Context(), id, pos) {
		writeError(w, ferrors.New(ferrors.ErrCodeNodeNotFound, "node %s not found", id))
		return
	}
	s.persist(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sess.DeleteNode(r.Context(), id) {
		writeError(w, ferrors.New(ferrors.ErrCodeNodeNotFound, "node %s not found", id))
		return
	}
	s.persist(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Edge and selection events
// =============================================================================

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var c workflow.Connection
	if err := decodeBody(r, &c); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.sess.Connect(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persist(r.Context())
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sess.DeleteEdge(r.Context(), id) {
		writeError(w, ferrors.New(ferrors.ErrCodeNotFound, "edge %s not found", id))
		return
	}
	s.persist(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sess.Select(r.Context(), req.ID, req.Selected) {
		writeError(w, ferrors.New(ferrors.ErrCodeNotFound, "%s not found", req.ID))
		return
	}
	s.persist(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, edges := s.sess.DeleteSelected(r.Context())
	if nodes+edges > 0 {
		s.persist(r.Context())
	}
	writeJSON(w, http.StatusOK, deletedResponse{Nodes: nodes, Edges: edges})
}

// =============================================================================
// History and import
// =============================================================================

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.Undo(r.Context()) {
		s.persist(r.Context())
	}
	writeJSON(w, http.StatusOK, s.graph())
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.Redo(r.Context()) {
		s.persist(r.Context())
	}
	writeJSON(w, http.StatusOK, s.graph())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := s.sess.Import(r.Context(), body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = ferrors.Wrap(ferrors.ErrCodeTooLarge, err, "import document exceeds %d bytes", tooLarge.Limit)
		}
		writeError(w, err)
		return
	}
	s.persist(r.Context())
	writeJSON(w, http.StatusOK, s.graph())
}

// =============================================================================
// Helpers
// =============================================================================

// graph must be called with s.mu held.
func (s *Server) graph() graphResponse {
	resp := graphResponse{
		Nodes:   s.sess.Nodes(),
		Edges:   s.sess.Edges(),
		CanUndo: s.sess.CanUndo(),
		CanRedo: s.sess.CanRedo(),
	}
	if resp.Nodes == nil {
		resp.Nodes = []workflow.Node{}
	}
	if resp.Edges == nil {
		resp.Edges = []workflow.Edge{}
	}
	return resp
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{
		Code:    ferrors.GetCode(err),
		Message: ferrors.UserMessage(err),
	}
	var ve *ferrors.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Fields
	}
	if resp.Code == "" {
		resp.Code = ferrors.ErrCodeInternal
	}
	writeJSON(w, statusFor(resp.Code), resp)
}

func statusFor(code ferrors.Code) int {
	switch code {
	case ferrors.ErrCodeInvalidInput, ferrors.ErrCodeInvalidFormat, ferrors.ErrCodeInvalidID,
		ferrors.ErrCodeInvalidPath, ferrors.ErrCodeInvalidKind:
		return http.StatusBadRequest
	case ferrors.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case ferrors.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case ferrors.ErrCodeNotFound, ferrors.ErrCodeNodeNotFound, ferrors.ErrCodeWorkspaceNotFound:
		return http.StatusNotFound
	case ferrors.ErrCodeConflict:
		return http.StatusConflict
	case ferrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

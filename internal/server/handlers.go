// File: internal/server/handlers.go
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/internal/browser"
	"github.com/xkilldash9x/boxscope/internal/document"
	"github.com/xkilldash9x/boxscope/internal/geometry"
	"github.com/xkilldash9x/boxscope/internal/workspace"
)

const maxBodyBytes = 1 << 16

// wireJSON leaves selectors such as "ul > li" readable on the wire.
var wireJSON = json.Config{EscapeHTML: false, SortMapKeys: true}.Froze()

// Handlers serves the REST API over a workspace.
type Handlers struct {
	log *zap.Logger
	ws  *workspace.Workspace
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(logger *zap.Logger, ws *workspace.Workspace) *Handlers {
	return &Handlers{
		log: logger.Named("handlers"),
		ws:  ws,
	}
}

// RegisterRoutes mounts the health check and the v1 API.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/resolve", h.HandleResolve)
		r.Get("/highlight/{index}", h.HandleHighlight)
		r.Get("/locate", h.HandleLocate)
		r.Get("/snapshot", h.HandleSnapshot)
		r.Post("/pick", h.HandlePick)
	})
}

// HandleHealthCheck reports readiness and what the workspace holds.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Browser:  h.ws.HasBrowser(),
		Snapshot: h.ws.Snapshot() != nil,
	})
}

// HandleResolve answers {x, y} against the active snapshot.
func (h *Handlers) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.X == nil || req.Y == nil {
		h.respondWithError(w, http.StatusBadRequest, "x and y are required")
		return
	}

	resp, err := h.ws.Resolve(geometry.Point{X: *req.X, Y: *req.Y})
	if err != nil {
		h.respondWithWorkspaceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// HandleHighlight returns the rectangle of an entry of the last result list.
// Unknown indexes are not an error: the body says found=false.
func (h *Handlers) HandleHighlight(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	resp, err := h.ws.Highlight(index)
	if err != nil {
		h.respondWithWorkspaceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// HandleLocate describes the node matched by ?xpath= or ?selector=.
func (h *Handlers) HandleLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.ws.Locate(q.Get("xpath"), q.Get("selector"))
	if err != nil {
		h.respondWithWorkspaceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// HandleSnapshot returns the active snapshot.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.ws.Snapshot()
	if snap == nil {
		h.respondWithWorkspaceError(w, workspace.ErrNoSession)
		return
	}
	h.respondJSON(w, http.StatusOK, snap)
}

// HandlePick runs one live pick and returns the resolved elements.
func (h *Handlers) HandlePick(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ws.Pick(r.Context())
	if err != nil {
		h.respondWithWorkspaceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) respondWithWorkspaceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed.", zap.Error(err))
	}
	h.respondWithError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrNoBrowser):
		return http.StatusServiceUnavailable
	case errors.Is(err, workspace.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, browser.ErrPickCanceled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// respondWithError sends a JSON error body.
func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON writes data as the JSON response body.
func (h *Handlers) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := wireJSON.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

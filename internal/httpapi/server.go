// Package httpapi implements the HTTP façade (spec §4.5): request
// routing, body decoding, response shaping, and status codes binding the
// template registry and executor together.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/flowzero/zflow/internal/codec"
	"github.com/flowzero/zflow/internal/registry"
	"github.com/flowzero/zflow/pkg/api"
)

// Server wraps an http.ServeMux binding the template registry and
// executor to the HTTP surface spec §4.5 describes.
type Server struct {
	mux       *http.ServeMux
	templates *registry.Registry
	executor  api.Executor
	logger    *slog.Logger
}

// New builds a Server. A nil logger falls back to slog.Default().
func New(templates *registry.Registry, exec api.Executor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mux:       http.NewServeMux(),
		templates: templates,
		executor:  exec,
		logger:    logger,
	}
	s.routes()
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /flows", s.handleStartFlow)
	s.mux.HandleFunc("GET /flows", s.handleGetAllFlows)
	s.mux.HandleFunc("GET /flows/{id}", s.handlePollFlow)
	s.mux.HandleFunc("DELETE /flows/{id}", s.handleDeleteFlow)
	s.mux.HandleFunc("POST /flows/{id}/pause", s.handlePauseFlow)
	s.mux.HandleFunc("POST /flows/{id}/resume", s.handleResumeFlow)
	s.mux.HandleFunc("POST /flows/{id}/abort", s.handleAbortFlow)

	// Supplemental template CRUD (SPEC_FULL.md §4.2): spec.md's endpoint
	// table never names these, but a control plane that can start
	// templates needs a way to create them.
	s.mux.HandleFunc("PUT /templates/{id}", s.handlePutTemplate)
	s.mux.HandleFunc("GET /templates/{id}", s.handleGetTemplate)
	s.mux.HandleFunc("DELETE /templates/{id}", s.handleDeleteTemplate)
	s.mux.HandleFunc("GET /templates", s.handleListTemplates)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("httpapi: encoding response", "error", err)
	}
}

func (s *Server) writeRawJSON(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(raw); err != nil {
		s.logger.Error("httpapi: writing response", "error", err)
	}
}

// writeError maps an error to a status code per spec §7: decode/argument
// problems to 400, unknown resources to 404, everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var decodeErr *api.DecodeError
	var notFoundErr *api.NotFoundError
	var ioa api.InvalidOperationArguments

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &decodeErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &ioa):
		status = http.StatusBadRequest
	default:
		s.logger.Error("httpapi: internal error", "error", err)
	}
	http.Error(w, err.Error(), status)
}

type startResponse struct {
	FlowId api.FlowId `json:"flowId"`
}

type getAllResponse struct {
	Flows map[api.FlowId]api.FlowStatus `json:"flows"`
}

func (s *Server) handleStartFlow(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		s.writeError(w, api.NewDecodeError("request body", err))
		return
	}

	req, err := decodeStartRequest(data)
	if err != nil {
		s.writeError(w, api.NewDecodeError("StartRequest", err))
		return
	}

	flow, err := resolve(r.Context(), s.templates, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	id := api.NewFlowID()
	if _, err := s.executor.Start(r.Context(), id, flow); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, startResponse{FlowId: id})
}

func (s *Server) handleGetAllFlows(w http.ResponseWriter, r *http.Request) {
	flows := make(map[api.FlowId]api.FlowStatus)
	for entry, err := range s.executor.GetAll(r.Context()) {
		if err != nil {
			s.writeError(w, err)
			return
		}
		flows[entry.Id] = entry.Status
	}
	s.writeJSON(w, http.StatusOK, getAllResponse{Flows: flows})
}

func (s *Server) handlePollFlow(w http.ResponseWriter, r *http.Request) {
	id := api.FlowId(r.PathValue("id"))
	outcome, err := s.executor.Poll(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	body, err := codec.EncodePollOutcome(outcome)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	id := api.FlowId(r.PathValue("id"))
	if err := s.executor.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePauseFlow(w http.ResponseWriter, r *http.Request) {
	id := api.FlowId(r.PathValue("id"))
	if err := s.executor.Pause(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleResumeFlow(w http.ResponseWriter, r *http.Request) {
	id := api.FlowId(r.PathValue("id"))
	if err := s.executor.Resume(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleAbortFlow(w http.ResponseWriter, r *http.Request) {
	id := api.FlowId(r.PathValue("id"))
	if err := s.executor.Abort(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

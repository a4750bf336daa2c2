package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/flowzero/zflow/pkg/api"
)

type templateEntryResponse struct {
	Id          api.TemplateId `json:"id"`
	Flow        api.Flow       `json:"flow"`
	InputSchema *api.Schema    `json:"inputSchema,omitempty"`
}

func (s *Server) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	id := api.TemplateId(r.PathValue("id"))

	data, err := readBody(r)
	if err != nil {
		s.writeError(w, api.NewDecodeError("request body", err))
		return
	}

	var body struct {
		Flow        api.Flow    `json:"flow"`
		InputSchema *api.Schema `json:"inputSchema,omitempty"`
	}
	if jsonErr := json.Unmarshal(data, &body); jsonErr != nil {
		s.writeError(w, api.NewDecodeError("Template", jsonErr))
		return
	}

	tmpl := api.Template{Flow: body.Flow, InputSchema: body.InputSchema}
	if err := s.templates.Put(r.Context(), id, tmpl); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := api.TemplateId(r.PathValue("id"))
	tmpl, err := s.templates.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, templateEntryResponse{Id: id, Flow: tmpl.Flow, InputSchema: tmpl.InputSchema})
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := api.TemplateId(r.PathValue("id"))
	if err := s.templates.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type listTemplatesResponse struct {
	Templates map[api.TemplateId]templateEntryResponse `json:"templates"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	out := map[api.TemplateId]templateEntryResponse{}
	for entry, err := range s.templates.All(r.Context()) {
		if err != nil {
			s.writeError(w, err)
			return
		}
		out[entry.Id] = templateEntryResponse{
			Id:          entry.Id,
			Flow:        entry.Template.Flow,
			InputSchema: entry.Template.InputSchema,
		}
	}
	s.writeJSON(w, http.StatusOK, listTemplatesResponse{Templates: out})
}

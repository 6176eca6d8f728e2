package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nyashahama/event-admin-backend/internal/mailtemplate"
	"github.com/nyashahama/event-admin-backend/internal/placeholder"
)

// templateResponse adds the placeholder keys the template uses, so the UI can
// show which team fields it merges.
type templateResponse struct {
	mailtemplate.Template
	Placeholders []string `json:"placeholders"`
}

func toTemplateResponse(t mailtemplate.Template) templateResponse {
	return templateResponse{
		Template:     t,
		Placeholders: placeholder.Keys(t.Subject + "\n" + t.HTMLBody),
	}
}

// respondTemplateErr maps store errors; unknown errors become a 500.
func (s *Server) respondTemplateErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, mailtemplate.ErrNotFound):
		respondErr(w, http.StatusNotFound, "Template not found")
	case errors.Is(err, mailtemplate.ErrDuplicateName):
		respondErr(w, http.StatusBadRequest, "Template name already exists")
	case errors.Is(err, mailtemplate.ErrInvalid):
		respondErr(w, http.StatusBadRequest, "All fields are required")
	default:
		s.respondInternalErr(w, r, err)
	}
}

// ─── GET /api/templates ───────────────────────────────────────────────────────

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	ts, err := s.templates.List(r.Context())
	if err != nil {
		s.respondTemplateErr(w, r, err)
		return
	}
	out := make([]templateResponse, len(ts))
	for i, t := range ts {
		out[i] = toTemplateResponse(t)
	}
	respond(w, http.StatusOK, map[string]any{"templates": out})
}

// ─── GET /api/templates/:templateID ───────────────────────────────────────────

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.templates.Get(r.Context(), chi.URLParam(r, "templateID"))
	if err != nil {
		s.respondTemplateErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"template": toTemplateResponse(t)})
}

// ─── POST /api/templates ──────────────────────────────────────────────────────

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in mailtemplate.Input
	if !decode(w, r, &in) {
		return
	}
	if !in.Normalize().Complete() {
		respondErr(w, http.StatusBadRequest, "All fields are required")
		return
	}

	t, err := s.templates.Create(r.Context(), in)
	if err != nil {
		s.respondTemplateErr(w, r, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{
		"message":  "Template created",
		"template": toTemplateResponse(t),
	})
}

// ─── PUT /api/templates/:templateID ───────────────────────────────────────────

// handleUpdateTemplate applies the non-empty fields of the body.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var in mailtemplate.Input
	if !decode(w, r, &in) {
		return
	}
	if in.Normalize().Empty() {
		respondErr(w, http.StatusBadRequest, "At least one field is required")
		return
	}

	t, err := s.templates.Update(r.Context(), chi.URLParam(r, "templateID"), in)
	if err != nil {
		s.respondTemplateErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"message":  "Template updated",
		"template": toTemplateResponse(t),
	})
}

// ─── DELETE /api/templates/:templateID ────────────────────────────────────────

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.Delete(r.Context(), chi.URLParam(r, "templateID")); err != nil {
		s.respondTemplateErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "Template deleted"})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// handleListQuedas returns one page of an assistido's fall history,
// newest first. The caregiver must hold a vínculo to the assistido.
func (s *Server) handleListQuedas(w http.ResponseWriter, r *http.Request) {
	assistidoID := chi.URLParam(r, "id")
	caregiverID := caregiverFromContext(r.Context())

	linked, err := s.links.IsLinked(r.Context(), caregiverID, assistidoID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !linked {
		writeForbidden(w, "caregiver not linked to assistido")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	events, total, err := s.events.ListByAssistido(r.Context(), assistidoID, page, pageSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"quedas":    events,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
	})
}

// queryInt parses an integer query parameter, falling back to a
// default.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

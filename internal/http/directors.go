package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-directory/internal/domain"
	"github.com/Clark-Hu/movie-directory/internal/repository"
)

type directorRequest struct {
	Name    string  `json:"name" validate:"required,max=255"`
	Country *string `json:"country" validate:"omitempty,max=100"`
}

type directorResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Country *string `json:"country"`
}

func (s *Server) handleListDirectors(w http.ResponseWriter, r *http.Request) {
	directors, err := s.repo.Directors.List(r.Context())
	if err != nil {
		s.logger.Error("list directors", "err", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list directors")
		return
	}
	items := make([]directorResponse, 0, len(directors))
	for _, d := range directors {
		items = append(items, toDirectorResponse(d))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateDirector(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeDirectorRequest(w, r)
	if !ok {
		return
	}
	director, err := s.repo.Directors.Create(r.Context(), params)
	if err != nil {
		s.respondRepoError(w, err, "create director")
		return
	}
	w.Header().Set("Location", "/api/directors/"+director.ID)
	s.respondJSON(w, http.StatusCreated, toDirectorResponse(director))
}

func (s *Server) handleUpdateDirector(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeDirectorRequest(w, r)
	if !ok {
		return
	}
	director, err := s.repo.Directors.Update(r.Context(), chi.URLParam(r, "id"), params)
	if err != nil {
		s.respondRepoError(w, err, "update director")
		return
	}
	s.respondJSON(w, http.StatusOK, toDirectorResponse(director))
}

func (s *Server) handleDeleteDirector(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Directors.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondRepoError(w, err, "delete director")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeDirectorRequest(w http.ResponseWriter, r *http.Request) (repository.DirectorParams, bool) {
	var req directorRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return repository.DirectorParams{}, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Country = normalizeStringPtr(req.Country)
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return repository.DirectorParams{}, false
	}
	return repository.DirectorParams{Name: req.Name, Country: req.Country}, true
}

func toDirectorResponse(d domain.Director) directorResponse {
	return directorResponse{ID: d.ID, Name: d.Name, Country: d.Country}
}

package httpserver

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-directory/internal/domain"
	"github.com/Clark-Hu/movie-directory/internal/notify"
	"github.com/Clark-Hu/movie-directory/internal/repository"
)

const (
	defaultPageSize = 20
	publishTimeout  = 3 * time.Second
)

type movieListRequest struct {
	Page       *int     `json:"page" validate:"omitempty,min=0"`
	Size       *int     `json:"size" validate:"omitempty,min=1,max=100"`
	Year       looseInt `json:"year"`
	Genre      *string  `json:"genre"`
	DirectorID *string  `json:"directorId"`
}

type movieRequest struct {
	Title      string `json:"title" validate:"required,max=255"`
	Year       *int   `json:"year" validate:"required,min=1888,max=2115"`
	Genre      string `json:"genre" validate:"required,max=100"`
	DirectorID string `json:"directorId" validate:"required"`
}

type directorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type movieResponse struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Year     int         `json:"year"`
	Genre    string      `json:"genre"`
	Director directorRef `json:"director"`
}

type movieListResponse struct {
	Content       []movieResponse `json:"content"`
	TotalPages    int             `json:"totalPages"`
	TotalElements int64           `json:"totalElements"`
	Page          int             `json:"page"`
	Size          int             `json:"size"`
}

type uploadResponse struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

func (s *Server) handleSearchMovies(w http.ResponseWriter, r *http.Request) {
	var req movieListRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}

	filters := buildSearchFilters(req)
	page, err := s.repo.Movies.Search(r.Context(), filters)
	if err != nil {
		s.logger.Error("search movies", "err", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list movies")
		return
	}

	items := make([]movieResponse, 0, len(page.Items))
	for _, movie := range page.Items {
		items = append(items, toMovieResponse(movie))
	}
	s.respondJSON(w, http.StatusOK, movieListResponse{
		Content:       items,
		TotalPages:    page.TotalPages,
		TotalElements: page.TotalElements,
		Page:          filters.Page,
		Size:          filters.Size,
	})
}

func buildSearchFilters(req movieListRequest) repository.MovieSearchFilters {
	filters := repository.MovieSearchFilters{
		Year:       req.Year.Value,
		Genre:      normalizeStringPtr(req.Genre),
		DirectorID: normalizeStringPtr(req.DirectorID),
		Size:       defaultPageSize,
	}
	if req.Page != nil {
		filters.Page = *req.Page
	}
	if req.Size != nil {
		filters.Size = *req.Size
	}
	return filters
}

func (s *Server) handleAllMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.repo.Movies.All(r.Context(), repository.MovieSearchFilters{})
	if err != nil {
		s.logger.Error("list all movies", "err", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list movies")
		return
	}
	items := make([]movieResponse, 0, len(movies))
	for _, movie := range movies {
		items = append(items, toMovieResponse(movie))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := s.repo.Movies.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondRepoError(w, err, "fetch movie")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeMovieRequest(w, r)
	if !ok {
		return
	}

	movie, err := s.createMovie(r.Context(), params)
	if err != nil {
		s.respondRepoError(w, err, "create movie")
		return
	}

	w.Header().Set("Location", "/api/movies/"+movie.ID)
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

// createMovie stores the movie and announces it. A broker failure never fails the create.
func (s *Server) createMovie(ctx context.Context, params repository.MovieParams) (domain.Movie, error) {
	movie, err := s.repo.Movies.Create(ctx, params)
	if err != nil {
		return domain.Movie{}, err
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.notifier.Publish(pubCtx, notify.MovieCreated(s.cfg.NotifyRecipient, movie)); err != nil {
		s.logger.Warn("failed to send email notification", "movie", movie.ID, "err", err)
	}
	return movie, nil
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeMovieRequest(w, r)
	if !ok {
		return
	}

	movie, err := s.repo.Movies.Update(r.Context(), chi.URLParam(r, "id"), params)
	if err != nil {
		s.respondRepoError(w, err, "update movie")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Movies.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondRepoError(w, err, "delete movie")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMovieReport(w http.ResponseWriter, r *http.Request) {
	var req movieListRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	movies, err := s.repo.Movies.All(r.Context(), buildSearchFilters(req))
	if err != nil {
		s.logger.Error("build movie report", "err", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build report")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="movies_report.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := writeReport(w, movies); err != nil {
		s.logger.Error("write movie report", "err", err)
	}
}

func writeReport(w io.Writer, movies []domain.Movie) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Id", "Title", "Year", "Genre", "Director"}); err != nil {
		return err
	}
	for _, m := range movies {
		if err := cw.Write([]string{m.ID, m.Title, strconv.Itoa(m.Year), m.Genre, m.Director.Name}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// handleUploadMovies imports a JSON array of movies from the multipart field
// "file". Elements are created one by one and counted, never rolled back.
func (s *Server) handleUploadMovies(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxUploadBytes))
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Multipart field \"file\" is required")
		return
	}
	defer file.Close()
	if header.Size == 0 {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "File is empty")
		return
	}

	dec := json.NewDecoder(file)
	tok, err := dec.Token()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Upload failed: invalid JSON")
		return
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Expected JSON array")
		return
	}

	var result uploadResponse
	for dec.More() {
		var req movieRequest
		if err := dec.Decode(&req); err != nil {
			var typeError *json.UnmarshalTypeError
			if errors.As(err, &typeError) {
				result.Failed++
				continue
			}
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Upload failed: invalid JSON")
			return
		}
		params, err := s.movieParams(req)
		if err != nil {
			result.Failed++
			continue
		}
		if _, err := s.createMovie(r.Context(), params); err != nil {
			s.logger.Debug("upload element rejected", "title", params.Title, "err", err)
			result.Failed++
			continue
		}
		result.Success++
	}

	s.logger.Info("movie upload processed", "file", header.Filename, "success", result.Success, "failed", result.Failed)
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) decodeMovieRequest(w http.ResponseWriter, r *http.Request) (repository.MovieParams, bool) {
	var req movieRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return repository.MovieParams{}, false
	}
	params, err := s.movieParams(req)
	if err != nil {
		s.respondValidationError(w, err)
		return repository.MovieParams{}, false
	}
	return params, true
}

func (s *Server) movieParams(req movieRequest) (repository.MovieParams, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Genre = strings.TrimSpace(req.Genre)
	req.DirectorID = strings.TrimSpace(req.DirectorID)
	if err := s.validate.Struct(req); err != nil {
		return repository.MovieParams{}, err
	}
	return repository.MovieParams{
		Title:      req.Title,
		Year:       *req.Year,
		Genre:      req.Genre,
		DirectorID: req.DirectorID,
	}, nil
}

func (s *Server) respondRepoError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, repository.ErrDirectorNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Director not found")
	case errors.Is(err, repository.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, repository.ErrConflict):
		s.respondError(w, http.StatusConflict, "CONFLICT", "Resource already exists")
	default:
		s.logger.Error(op, "err", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fmt.Sprintf("Failed to %s", op))
	}
}

func toMovieResponse(movie domain.Movie) movieResponse {
	return movieResponse{
		ID:    movie.ID,
		Title: movie.Title,
		Year:  movie.Year,
		Genre: movie.Genre,
		Director: directorRef{
			ID:   movie.Director.ID,
			Name: movie.Director.Name,
		},
	}
}

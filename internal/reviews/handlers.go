package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"

	"github.com/Clark-Hu/movie-directory/internal/auth"
	"github.com/Clark-Hu/movie-directory/internal/domain"
)

const maxBodyBytes = 1 << 20

type createReviewRequest struct {
	MovieID string `json:"movieId" validate:"required,max=64"`
	Rating  *int   `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type countsRequest struct {
	MovieIDs []string `json:"movieIds" validate:"max=500"`
}

type reviewPage struct {
	Content       []domain.Review `json:"content"`
	Page          int             `json:"page"`
	Size          int             `json:"size"`
	TotalElements int             `json:"totalElements"`
	TotalPages    int             `json:"totalPages"`
}

// Handler serves the review API.
type Handler struct {
	store    ReviewStore
	analyzer Analyzer
	verifier auth.Verifier
	validate *validator.Validate
	logger   *log.Logger
}

func NewHandler(store ReviewStore, analyzer Analyzer, verifier auth.Verifier, logger *log.Logger) *Handler {
	if analyzer == nil {
		analyzer = neutralAnalyzer{}
	}
	if logger == nil {
		logger = log.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Handler{store: store, analyzer: analyzer, verifier: verifier, validate: v, logger: logger}
}

// Routes mounts the API under both /reviews and /api/reviews.
func (h *Handler) Routes() http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		h.logger.Error("panic in handler", "path", r.URL.Path, "panic", v)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}

	protect := auth.Middleware(h.verifier, h.logger)
	for _, prefix := range []string{"/reviews", "/api/reviews"} {
		router.Handler(http.MethodPost, prefix, protect(http.HandlerFunc(h.handleCreate)))
		router.HandlerFunc(http.MethodGet, prefix, h.handleList)
		router.HandlerFunc(http.MethodPost, prefix+"/_counts", h.handleCounts)
	}
	router.HandlerFunc(http.MethodGet, "/healthz", h.handleHealthz)
	return router
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token provided")
		return
	}

	var req createReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	req.MovieID = strings.TrimSpace(req.MovieID)
	req.Comment = strings.TrimSpace(req.Comment)
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	review := &domain.Review{
		MovieID:    req.MovieID,
		AuthorID:   id.Subject,
		AuthorName: authorName(id),
		Rating:     *req.Rating,
		Comment:    req.Comment,
		Sentiment:  h.analyzer.Classify(req.Comment),
	}
	if err := h.store.Create(r.Context(), review); err != nil {
		h.logger.Error("create review failed", "movie", req.MovieID, "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	movieID := strings.TrimSpace(q.Get("movieId"))
	if movieID == "" {
		writeMessage(w, http.StatusBadRequest, "movieId is required")
		return
	}
	page, err := queryInt(q.Get("page"), 1)
	if err != nil || page < 1 {
		writeMessage(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	size, err := queryInt(q.Get("size"), defaultPageSize)
	if err != nil || size < 1 || size > maxPageSize {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("size must be between 1 and %d", maxPageSize))
		return
	}

	items, total, err := h.store.ListByMovie(r.Context(), movieID, page, size)
	if err != nil {
		h.logger.Error("list reviews failed", "movie", movieID, "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + size - 1) / size
	}
	writeJSON(w, http.StatusOK, reviewPage{
		Content:       items,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	})
}

func (h *Handler) handleCounts(w http.ResponseWriter, r *http.Request) {
	var req countsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	counts, err := h.store.CountByMovies(r.Context(), req.MovieIDs)
	if err != nil {
		h.logger.Error("count reviews failed", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeMessage(w, http.StatusServiceUnavailable, "unhealthy")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func authorName(id auth.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}

func queryInt(raw string, def int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min", "max":
		if fe.Field() == "rating" {
			return "rating must be between 1 and 5"
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

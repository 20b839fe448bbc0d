package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-directory/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDirectorNotFound is returned when a movie references an unknown director.
	ErrDirectorNotFound = errors.New("repository: director not found")
	// ErrConflict signals a uniqueness violation.
	ErrConflict = errors.New("repository: conflict")
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Movies    *MoviesRepository
	Directors *DirectorsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Movies:    &MoviesRepository{pool: pool},
		Directors: &DirectorsRepository{pool: pool},
	}
}

// validID reports whether id can be stored in a UUID column. Anything else
// cannot match a row, so lookups short-circuit to ErrNotFound.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

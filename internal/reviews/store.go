// Package reviews implements the review API: storage, sentiment tagging and HTTP handlers.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Clark-Hu/movie-directory/internal/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ReviewStore persists reviews.
type ReviewStore interface {
	Create(ctx context.Context, review *domain.Review) error
	ListByMovie(ctx context.Context, movieID string, page, size int) ([]domain.Review, int, error)
	CountByMovies(ctx context.Context, movieIDs []string) (map[string]int, error)
	Ping(ctx context.Context) error
}

// Store is the Postgres-backed ReviewStore.
type Store struct {
	db     *sqlx.DB
	logger *log.Logger
}

// Open connects to Postgres with the lib/pq driver.
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect reviews db: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func NewStore(db *sqlx.DB, logger *log.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("reviews: db cannot be nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Store{db: db, logger: logger.WithPrefix("reviews")}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create assigns the id and timestamp and inserts the review.
func (s *Store) Create(ctx context.Context, review *domain.Review) error {
	review.ID = uuid.NewString()
	review.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO reviews (id, movie_id, author_id, author_name, rating, comment, sentiment, created_at)
		VALUES (:id, :movie_id, :author_id, :author_name, :rating, :comment, :sentiment, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	s.logger.Debug("review created", "id", review.ID, "movie", review.MovieID)
	return nil
}

// ListByMovie returns one page of a movie's reviews, newest first, plus the total count.
// page is 1-based.
func (s *Store) ListByMovie(ctx context.Context, movieID string, page, size int) ([]domain.Review, int, error) {
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	if page < 1 {
		page = 1
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reviews WHERE movie_id = $1`, movieID); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	items := []domain.Review{}
	if total == 0 {
		return items, 0, nil
	}

	const query = `
		SELECT id, movie_id, author_id, author_name, rating, comment, sentiment, created_at
		FROM reviews
		WHERE movie_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	if err := s.db.SelectContext(ctx, &items, query, movieID, size, (page-1)*size); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return items, total, nil
}

// CountByMovies returns the review count of each requested movie; unknown ids map to zero.
func (s *Store) CountByMovies(ctx context.Context, movieIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(movieIDs))
	for _, id := range movieIDs {
		counts[id] = 0
	}
	if len(movieIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		MovieID string `db:"movie_id"`
		Count   int    `db:"count"`
	}
	const query = `
		SELECT movie_id, COUNT(*) AS count
		FROM reviews
		WHERE movie_id = ANY($1)
		GROUP BY movie_id`
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(movieIDs)); err != nil {
		return nil, fmt.Errorf("count reviews by movie: %w", err)
	}
	for _, r := range rows {
		counts[r.MovieID] = r.Count
	}
	return counts, nil
}

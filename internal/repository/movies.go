package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-directory/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    m.id,
    m.title,
    m.year,
    m.genre,
    d.id,
    d.name,
    d.country,
    m.created_at,
    m.updated_at
`

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// MovieParams bundles the writable fields of a movie.
type MovieParams struct {
	Title      string
	Year       int
	Genre      string
	DirectorID string
}

// MovieSearchFilters narrows a search. Nil filters impose no constraint.
type MovieSearchFilters struct {
	Year       *int
	Genre      *string
	DirectorID *string
	Page       int
	Size       int
}

// MoviePage is one page of search results.
type MoviePage struct {
	Items         []domain.Movie
	TotalElements int64
	TotalPages    int
}

// Create inserts a new movie row and returns the stored entity with its director.
func (r *MoviesRepository) Create(ctx context.Context, params MovieParams) (domain.Movie, error) {
	if !validID(params.DirectorID) {
		return domain.Movie{}, ErrDirectorNotFound
	}
	query := fmt.Sprintf(`
        WITH m AS (
            INSERT INTO movies (title, year, genre, director_id)
            VALUES ($1,$2,$3,$4)
            RETURNING *
        )
        SELECT %s FROM m JOIN directors d ON d.id = m.director_id
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query, params.Title, params.Year, params.Genre, params.DirectorID)
	movie, err := scanMovie(row)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.Movie{}, ErrDirectorNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	if !validID(id) {
		return domain.Movie{}, ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM movies m JOIN directors d ON d.id = m.director_id WHERE m.id = $1`, movieColumns)
	row := r.pool.QueryRow(ctx, query, id)
	movie, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// Update replaces every writable field of a movie. A missing movie wins over a
// missing director.
func (r *MoviesRepository) Update(ctx context.Context, id string, params MovieParams) (domain.Movie, error) {
	if !validID(id) {
		return domain.Movie{}, ErrNotFound
	}
	if !validID(params.DirectorID) {
		if _, err := r.GetByID(ctx, id); err != nil {
			return domain.Movie{}, err
		}
		return domain.Movie{}, ErrDirectorNotFound
	}

	query := fmt.Sprintf(`
        WITH m AS (
            UPDATE movies
            SET title = $2,
                year = $3,
                genre = $4,
                director_id = $5,
                updated_at = now()
            WHERE id = $1
            RETURNING *
        )
        SELECT %s FROM m JOIN directors d ON d.id = m.director_id
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query, id, params.Title, params.Year, params.Genre, params.DirectorID)
	movie, err := scanMovie(row)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Movie{}, ErrNotFound
		case pgCode(err) == pgForeignKeyViolation:
			return domain.Movie{}, ErrDirectorNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// Delete removes a movie. Deleting an unknown id returns ErrNotFound.
func (r *MoviesRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Search returns one page of movies matching the filters, newest first.
func (r *MoviesRepository) Search(ctx context.Context, filters MovieSearchFilters) (MoviePage, error) {
	if filters.Size <= 0 {
		filters.Size = defaultPageSize
	} else if filters.Size > maxPageSize {
		filters.Size = maxPageSize
	}
	if filters.Page < 0 {
		filters.Page = 0
	}

	where, args, ok := buildWhere(filters)
	if !ok {
		return MoviePage{Items: []domain.Movie{}}, nil
	}

	var total int64
	countQuery := "SELECT count(*) FROM movies m" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return MoviePage{}, err
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies m JOIN directors d ON d.id = m.director_id")
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(" ORDER BY m.created_at DESC, m.id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", filters.Size, filters.Page*filters.Size))

	items, err := r.query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return MoviePage{}, err
	}

	return MoviePage{
		Items:         items,
		TotalElements: total,
		TotalPages:    totalPages(total, filters.Size),
	}, nil
}

// All returns every movie matching the filters, ignoring paging.
func (r *MoviesRepository) All(ctx context.Context, filters MovieSearchFilters) ([]domain.Movie, error) {
	where, args, ok := buildWhere(filters)
	if !ok {
		return []domain.Movie{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM movies m JOIN directors d ON d.id = m.director_id%s ORDER BY m.created_at DESC, m.id DESC`, movieColumns, where)
	return r.query(ctx, query, args...)
}

// buildWhere renders the filter clause. ok is false when a filter can never
// match, such as a director id that is not a UUID.
func buildWhere(filters MovieSearchFilters) (string, []interface{}, bool) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Year != nil {
		where = append(where, fmt.Sprintf("m.year = %s", arg(*filters.Year)))
	}
	if filters.Genre != nil && strings.TrimSpace(*filters.Genre) != "" {
		where = append(where, fmt.Sprintf("m.genre = %s", arg(strings.TrimSpace(*filters.Genre))))
	}
	if filters.DirectorID != nil && strings.TrimSpace(*filters.DirectorID) != "" {
		id := strings.TrimSpace(*filters.DirectorID)
		if !validID(id) {
			return "", nil, false
		}
		where = append(where, fmt.Sprintf("m.director_id = %s", arg(id)))
	}

	if len(where) == 0 {
		return "", args, true
	}
	return " WHERE " + strings.Join(where, " AND "), args, true
}

func (r *MoviesRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Movie, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func totalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Year,
		&movie.Genre,
		&movie.Director.ID,
		&movie.Director.Name,
		&movie.Director.Country,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}

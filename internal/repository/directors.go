package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-directory/internal/domain"
)

// DirectorsRepository persists directors. Names are unique ignoring case.
type DirectorsRepository struct {
	pool *pgxpool.Pool
}

const directorColumns = `id, name, country, created_at, updated_at`

// DirectorParams bundles the writable fields of a director.
type DirectorParams struct {
	Name    string
	Country *string
}

// List returns every director ordered by name.
func (r *DirectorsRepository) List(ctx context.Context) ([]domain.Director, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+directorColumns+` FROM directors ORDER BY lower(name), id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Director, 0)
	for rows.Next() {
		d, err := scanDirector(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// GetByID fetches a director by its identifier.
func (r *DirectorsRepository) GetByID(ctx context.Context, id string) (domain.Director, error) {
	if !validID(id) {
		return domain.Director{}, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+directorColumns+` FROM directors WHERE id = $1`, id)
	d, err := scanDirector(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Director{}, ErrNotFound
		}
		return domain.Director{}, err
	}
	return d, nil
}

// Create inserts a director, returning ErrConflict when the name is taken.
func (r *DirectorsRepository) Create(ctx context.Context, params DirectorParams) (domain.Director, error) {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO directors (name, country)
        VALUES ($1, $2)
        RETURNING `+directorColumns, params.Name, params.Country)
	d, err := scanDirector(row)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.Director{}, ErrConflict
		}
		return domain.Director{}, err
	}
	return d, nil
}

// Update renames or relocates a director.
func (r *DirectorsRepository) Update(ctx context.Context, id string, params DirectorParams) (domain.Director, error) {
	if !validID(id) {
		return domain.Director{}, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
        UPDATE directors
        SET name = $2, country = $3, updated_at = now()
        WHERE id = $1
        RETURNING `+directorColumns, id, params.Name, params.Country)
	d, err := scanDirector(row)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Director{}, ErrNotFound
		case pgCode(err) == pgUniqueViolation:
			return domain.Director{}, ErrConflict
		}
		return domain.Director{}, err
	}
	return d, nil
}

// Delete removes a director together with its movies.
func (r *DirectorsRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM directors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDirector(row pgx.Row) (domain.Director, error) {
	var d domain.Director
	if err := row.Scan(&d.ID, &d.Name, &d.Country, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return domain.Director{}, err
	}
	return d, nil
}

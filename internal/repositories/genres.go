package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/streamcatalog/backend/internal/db"
	"github.com/streamcatalog/backend/internal/models"
)

// GenreRepository defines the data access contract for genres.
type GenreRepository interface {
	Create(ctx context.Context, genre models.Genre) error
	FindByID(ctx context.Context, id string) (models.Genre, error)
	FindBySlug(ctx context.Context, slug string) (models.Genre, error)
	List(ctx context.Context, searchTerm string) ([]models.Genre, error)
	Update(ctx context.Context, genre models.Genre) error
	Delete(ctx context.Context, id string) error
}

// PostgresGenreRepository provides PostgreSQL-backed persistence for genres.
type PostgresGenreRepository struct {
	pool db.Pool
}

// NewPostgresGenreRepository constructs a genre repository backed by PostgreSQL.
func NewPostgresGenreRepository(pool db.Pool) *PostgresGenreRepository {
	return &PostgresGenreRepository{pool: pool}
}

// Create persists a new genre. A duplicate slug yields ErrConflict.
func (r *PostgresGenreRepository) Create(ctx context.Context, genre models.Genre) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO genres (id, name, slug, description, icon, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, genre.ID, genre.Name, genre.Slug, genre.Description, genre.Icon, genre.CreatedAt, genre.UpdatedAt)
	if err != nil {
		return mapPgError(err, "insert genre")
	}

	return nil
}

// FindByID fetches a genre by identifier.
func (r *PostgresGenreRepository) FindByID(ctx context.Context, id string) (models.Genre, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindBySlug fetches a genre by slug.
func (r *PostgresGenreRepository) FindBySlug(ctx context.Context, slug string) (models.Genre, error) {
	return r.findOne(ctx, `WHERE slug = $1`, slug)
}

// List returns genres whose name or slug contains the search term.
func (r *PostgresGenreRepository) List(ctx context.Context, searchTerm string) ([]models.Genre, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, name, slug, description, icon, created_at, updated_at
        FROM genres
        WHERE name ILIKE '%' || $1 || '%' OR slug ILIKE '%' || $1 || '%'
        ORDER BY name
    `, searchTerm)
	if err != nil {
		return nil, fmt.Errorf("query genres: %w", err)
	}
	defer rows.Close()

	var genres []models.Genre
	for rows.Next() {
		var genre models.Genre
		if err := rows.Scan(&genre.ID, &genre.Name, &genre.Slug, &genre.Description,
			&genre.Icon, &genre.CreatedAt, &genre.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, genre)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genres: %w", err)
	}

	return genres, nil
}

// Update modifies an existing genre record.
func (r *PostgresGenreRepository) Update(ctx context.Context, genre models.Genre) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE genres
        SET name = $2, slug = $3, description = $4, icon = $5, updated_at = $6
        WHERE id = $1
    `, genre.ID, genre.Name, genre.Slug, genre.Description, genre.Icon, genre.UpdatedAt)
	if err != nil {
		return mapPgError(err, "update genre")
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a genre; movie links cascade.
func (r *PostgresGenreRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM genres WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete genre: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresGenreRepository) findOne(ctx context.Context, where string, arg any) (models.Genre, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Genre{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, name, slug, description, icon, created_at, updated_at
        FROM genres `+where, arg)

	var genre models.Genre
	if err := row.Scan(&genre.ID, &genre.Name, &genre.Slug, &genre.Description,
		&genre.Icon, &genre.CreatedAt, &genre.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Genre{}, ErrNotFound
		}
		return models.Genre{}, fmt.Errorf("scan genre: %w", err)
	}

	return genre, nil
}

var _ GenreRepository = (*PostgresGenreRepository)(nil)

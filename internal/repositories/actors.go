package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/streamcatalog/backend/internal/db"
	"github.com/streamcatalog/backend/internal/models"
)

// ActorRepository defines the data access contract for actors.
type ActorRepository interface {
	Create(ctx context.Context, actor models.Actor) error
	FindByID(ctx context.Context, id string) (models.Actor, error)
	FindBySlug(ctx context.Context, slug string) (models.Actor, error)
	List(ctx context.Context, searchTerm string) ([]models.Actor, error)
	Update(ctx context.Context, actor models.Actor) error
	Delete(ctx context.Context, id string) error
}

// PostgresActorRepository provides PostgreSQL-backed persistence for actors.
type PostgresActorRepository struct {
	pool db.Pool
}

// NewPostgresActorRepository constructs an actor repository backed by PostgreSQL.
func NewPostgresActorRepository(pool db.Pool) *PostgresActorRepository {
	return &PostgresActorRepository{pool: pool}
}

// Create persists a new actor. A duplicate slug yields ErrConflict.
func (r *PostgresActorRepository) Create(ctx context.Context, actor models.Actor) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO actors (id, name, slug, photo, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, actor.ID, actor.Name, actor.Slug, actor.Photo, actor.CreatedAt, actor.UpdatedAt)
	if err != nil {
		return mapPgError(err, "insert actor")
	}

	return nil
}

// FindByID fetches an actor by identifier.
func (r *PostgresActorRepository) FindByID(ctx context.Context, id string) (models.Actor, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindBySlug fetches an actor by slug.
func (r *PostgresActorRepository) FindBySlug(ctx context.Context, slug string) (models.Actor, error) {
	return r.findOne(ctx, `WHERE slug = $1`, slug)
}

// List returns actors whose name or slug contains the search term.
func (r *PostgresActorRepository) List(ctx context.Context, searchTerm string) ([]models.Actor, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, name, slug, photo, created_at, updated_at
        FROM actors
        WHERE name ILIKE '%' || $1 || '%' OR slug ILIKE '%' || $1 || '%'
        ORDER BY name
    `, searchTerm)
	if err != nil {
		return nil, fmt.Errorf("query actors: %w", err)
	}
	defer rows.Close()

	var actors []models.Actor
	for rows.Next() {
		var actor models.Actor
		if err := rows.Scan(&actor.ID, &actor.Name, &actor.Slug, &actor.Photo,
			&actor.CreatedAt, &actor.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan actor: %w", err)
		}
		actors = append(actors, actor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actors: %w", err)
	}

	return actors, nil
}

// Update modifies an existing actor record.
func (r *PostgresActorRepository) Update(ctx context.Context, actor models.Actor) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE actors
        SET name = $2, slug = $3, photo = $4, updated_at = $5
        WHERE id = $1
    `, actor.ID, actor.Name, actor.Slug, actor.Photo, actor.UpdatedAt)
	if err != nil {
		return mapPgError(err, "update actor")
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes an actor; movie links cascade.
func (r *PostgresActorRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM actors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete actor: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresActorRepository) findOne(ctx context.Context, where string, arg any) (models.Actor, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Actor{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, name, slug, photo, created_at, updated_at
        FROM actors `+where, arg)

	var actor models.Actor
	if err := row.Scan(&actor.ID, &actor.Name, &actor.Slug, &actor.Photo,
		&actor.CreatedAt, &actor.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Actor{}, ErrNotFound
		}
		return models.Actor{}, fmt.Errorf("scan actor: %w", err)
	}

	return actor, nil
}

var _ ActorRepository = (*PostgresActorRepository)(nil)

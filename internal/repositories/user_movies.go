package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/streamcatalog/backend/internal/db"
	"github.com/streamcatalog/backend/internal/logging"
	"github.com/streamcatalog/backend/internal/models"
)

// UserMovieRepository maintains the user-movie edges and the derived
// aggregate rating stored on each movie.
type UserMovieRepository interface {
	SetRating(ctx context.Context, userID, movieID string, value float64) (float64, error)
	RatingForUser(ctx context.Context, userID, movieID string) (*float64, error)
	ToggleFavorite(ctx context.Context, userID, movieID string) (bool, error)
	ListFavorites(ctx context.Context, userID string) ([]models.Movie, error)
}

// PostgresUserMovieRepository provides PostgreSQL-backed persistence for
// rating edges and favorites.
type PostgresUserMovieRepository struct {
	pool db.Pool
}

// NewPostgresUserMovieRepository constructs a user-movie repository backed by PostgreSQL.
func NewPostgresUserMovieRepository(pool db.Pool) *PostgresUserMovieRepository {
	return &PostgresUserMovieRepository{pool: pool}
}

// SetRating upserts the caller's rating edge and recomputes the movie's
// aggregate rating inside one serializable transaction, so concurrent raters
// of the same movie cannot overwrite each other's aggregate. It returns the
// new aggregate. An unknown movie yields ErrNotFound before any write.
func (r *PostgresUserMovieRepository) SetRating(ctx context.Context, userID, movieID string, value float64) (float64, error) {
	ctx, span := logging.StartSpan(ctx, "repositories.SetRating")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	now := time.Now().UTC()

	var aggregate float64
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, movieID).Scan(&exists); err != nil {
			return fmt.Errorf("check movie exists: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		if _, err := tx.Exec(ctx, `
            INSERT INTO user_movies (user_id, movie_id, rating, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $4)
            ON CONFLICT (user_id, movie_id)
            DO UPDATE SET rating = EXCLUDED.rating, updated_at = EXCLUDED.updated_at
        `, userID, movieID, value, now); err != nil {
			return mapPgError(err, "upsert rating edge")
		}

		if err := tx.QueryRow(ctx, `
            SELECT COALESCE(AVG(rating), 0)
            FROM user_movies
            WHERE movie_id = $1 AND rating IS NOT NULL
        `, movieID).Scan(&aggregate); err != nil {
			return fmt.Errorf("aggregate movie rating: %w", err)
		}

		if _, err := tx.Exec(ctx, `
            UPDATE movies SET rating = $2, updated_at = $3 WHERE id = $1
        `, movieID, aggregate, now); err != nil {
			return fmt.Errorf("write aggregate rating: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		err = fmt.Errorf("set rating: %w", err)
		span.Fail(err)
		return 0, err
	}

	return aggregate, nil
}

// RatingForUser returns the caller's stored rating for the movie. The result
// is nil when the edge exists but carries no rating; a missing edge yields
// ErrNotFound so callers can tell "never rated" from "rated zero".
func (r *PostgresUserMovieRepository) RatingForUser(ctx context.Context, userID, movieID string) (*float64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var rating *float64
	err = conn.QueryRow(ctx, `
        SELECT rating FROM user_movies WHERE user_id = $1 AND movie_id = $2
    `, userID, movieID).Scan(&rating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select rating edge: %w", err)
	}

	return rating, nil
}

// ToggleFavorite flips the favorite edge for (user, movie) and reports the
// resulting state. Removing an edge that carried a rating also refreshes the
// movie's aggregate, so the transaction mirrors SetRating.
func (r *PostgresUserMovieRepository) ToggleFavorite(ctx context.Context, userID, movieID string) (bool, error) {
	ctx, span := logging.StartSpan(ctx, "repositories.ToggleFavorite")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	now := time.Now().UTC()

	var favorited bool
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, movieID).Scan(&exists); err != nil {
			return fmt.Errorf("check movie exists: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		tag, err := tx.Exec(ctx, `
            DELETE FROM user_movies WHERE user_id = $1 AND movie_id = $2
        `, userID, movieID)
		if err != nil {
			return fmt.Errorf("delete favorite edge: %w", err)
		}

		if tag.RowsAffected() > 0 {
			favorited = false

			var aggregate float64
			if err := tx.QueryRow(ctx, `
                SELECT COALESCE(AVG(rating), 0)
                FROM user_movies
                WHERE movie_id = $1 AND rating IS NOT NULL
            `, movieID).Scan(&aggregate); err != nil {
				return fmt.Errorf("aggregate movie rating: %w", err)
			}
			if _, err := tx.Exec(ctx, `
                UPDATE movies SET rating = $2, updated_at = $3 WHERE id = $1
            `, movieID, aggregate, now); err != nil {
				return fmt.Errorf("write aggregate rating: %w", err)
			}
			return nil
		}

		favorited = true
		if _, err := tx.Exec(ctx, `
            INSERT INTO user_movies (user_id, movie_id, rating, created_at, updated_at)
            VALUES ($1, $2, NULL, $3, $3)
        `, userID, movieID, now); err != nil {
			return mapPgError(err, "insert favorite edge")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, ErrNotFound
		}
		err = fmt.Errorf("toggle favorite: %w", err)
		span.Fail(err)
		return false, err
	}

	return favorited, nil
}

// ListFavorites returns the movies the user has an edge to, highest rated first.
func (r *PostgresUserMovieRepository) ListFavorites(ctx context.Context, userID string) ([]models.Movie, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+movieColumns+` `+movieFrom+`
        WHERE m.id IN (SELECT movie_id FROM user_movies WHERE user_id = $1)
        ORDER BY m.rating DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}

	if err := attachMovieRelations(ctx, conn, movies); err != nil {
		return nil, err
	}

	return movies, nil
}

var _ UserMovieRepository = (*PostgresUserMovieRepository)(nil)

package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcatalog/backend/internal/db"
	"github.com/streamcatalog/backend/internal/models"
)

// MovieRepository defines the data access contract for the movie catalog.
type MovieRepository interface {
	Create(ctx context.Context, movie models.Movie, genreIDs, actorIDs []string) error
	FindByID(ctx context.Context, id string) (models.Movie, error)
	FindBySlug(ctx context.Context, slug string) (models.Movie, error)
	List(ctx context.Context, searchTerm string) ([]models.Movie, error)
	ListByActor(ctx context.Context, actorID string) ([]models.Movie, error)
	ListByGenres(ctx context.Context, genreIDs []string) ([]models.Movie, error)
	ListMostPopular(ctx context.Context) ([]models.Movie, error)
	IncrementCountOpened(ctx context.Context, slug string) (models.Movie, error)
	Update(ctx context.Context, movie models.Movie, genreIDs, actorIDs []string) error
	Delete(ctx context.Context, id string) error
	MarkAnnounced(ctx context.Context, id string) error
}

const movieColumns = `m.id, m.title, m.slug, m.poster, m.big_poster, m.video_url,
        m.rating, m.count_opened, m.announced, m.created_at, m.updated_at,
        COALESCE(p.year, 0), COALESCE(p.duration, 0), COALESCE(p.country, '')`

const movieFrom = `FROM movies m LEFT JOIN movie_parameters p ON p.movie_id = m.id`

// PostgresMovieRepository provides PostgreSQL-backed persistence for movies,
// their parameters, and their genre and actor links.
type PostgresMovieRepository struct {
	pool db.Pool
}

// NewPostgresMovieRepository constructs a movie repository backed by PostgreSQL.
func NewPostgresMovieRepository(pool db.Pool) *PostgresMovieRepository {
	return &PostgresMovieRepository{pool: pool}
}

// Create stores the movie, its parameters, and its genre/actor links in one
// transaction. A duplicate slug yields ErrConflict; an unknown genre or actor
// id yields ErrNotFound.
func (r *PostgresMovieRepository) Create(ctx context.Context, movie models.Movie, genreIDs, actorIDs []string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin movie insert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO movies (id, title, slug, poster, big_poster, video_url,
                rating, count_opened, announced, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, movie.ID, movie.Title, movie.Slug, movie.Poster, movie.BigPoster, movie.VideoURL,
		movie.Rating, movie.CountOpened, movie.Announced, movie.CreatedAt, movie.UpdatedAt)
	if err != nil {
		return mapPgError(err, "insert movie")
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO movie_parameters (movie_id, year, duration, country)
        VALUES ($1, $2, $3, $4)
    `, movie.ID, movie.Parameters.Year, movie.Parameters.Duration, movie.Parameters.Country)
	if err != nil {
		return mapPgError(err, "insert movie parameters")
	}

	if err := insertMovieLinks(ctx, tx, movie.ID, genreIDs, actorIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit movie insert: %w", err)
	}

	return nil
}

// FindByID fetches a movie with its parameters, genres, and actors.
func (r *PostgresMovieRepository) FindByID(ctx context.Context, id string) (models.Movie, error) {
	return r.findOne(ctx, `WHERE m.id = $1`, id)
}

// FindBySlug fetches a movie by its URL slug.
func (r *PostgresMovieRepository) FindBySlug(ctx context.Context, slug string) (models.Movie, error) {
	return r.findOne(ctx, `WHERE m.slug = $1`, slug)
}

// List returns movies whose title or slug contains the search term, highest
// rated first.
func (r *PostgresMovieRepository) List(ctx context.Context, searchTerm string) ([]models.Movie, error) {
	return r.listWhere(ctx, `
        WHERE m.title ILIKE '%' || $1 || '%' OR m.slug ILIKE '%' || $1 || '%'
        ORDER BY m.rating DESC
    `, searchTerm)
}

// ListByActor returns the movies featuring the given actor, highest rated first.
func (r *PostgresMovieRepository) ListByActor(ctx context.Context, actorID string) ([]models.Movie, error) {
	return r.listWhere(ctx, `
        WHERE m.id IN (SELECT movie_id FROM actor_movies WHERE actor_id = $1)
        ORDER BY m.rating DESC
    `, actorID)
}

// ListByGenres returns movies tagged with any of the given genres.
func (r *PostgresMovieRepository) ListByGenres(ctx context.Context, genreIDs []string) ([]models.Movie, error) {
	if len(genreIDs) == 0 {
		return nil, nil
	}
	return r.listWhere(ctx, `
        WHERE m.id IN (SELECT movie_id FROM genre_movies WHERE genre_id = ANY($1))
        ORDER BY m.rating DESC
    `, genreIDs)
}

// ListMostPopular returns movies that have been opened at least once, most
// opened first.
func (r *PostgresMovieRepository) ListMostPopular(ctx context.Context) ([]models.Movie, error) {
	return r.listWhere(ctx, `
        WHERE m.count_opened > 0
        ORDER BY m.count_opened DESC
    `)
}

// IncrementCountOpened bumps the open counter for the movie with the given
// slug and returns the updated movie.
func (r *PostgresMovieRepository) IncrementCountOpened(ctx context.Context, slug string) (models.Movie, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Movie{}, fmt.Errorf("acquire connection: %w", err)
	}

	var id string
	err = conn.QueryRow(ctx, `
        UPDATE movies
        SET count_opened = count_opened + 1
        WHERE slug = $1
        RETURNING id
    `, slug).Scan(&id)
	conn.Release()
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Movie{}, ErrNotFound
		}
		return models.Movie{}, fmt.Errorf("increment count opened: %w", err)
	}

	return r.FindByID(ctx, id)
}

// Update rewrites the movie row, its parameters, and its links.
func (r *PostgresMovieRepository) Update(ctx context.Context, movie models.Movie, genreIDs, actorIDs []string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin movie update: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE movies
        SET title = $2, slug = $3, poster = $4, big_poster = $5, video_url = $6,
            rating = $7, count_opened = $8, announced = $9, updated_at = $10
        WHERE id = $1
    `, movie.ID, movie.Title, movie.Slug, movie.Poster, movie.BigPoster, movie.VideoURL,
		movie.Rating, movie.CountOpened, movie.Announced, movie.UpdatedAt)
	if err != nil {
		return mapPgError(err, "update movie")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO movie_parameters (movie_id, year, duration, country)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (movie_id)
        DO UPDATE SET year = EXCLUDED.year, duration = EXCLUDED.duration, country = EXCLUDED.country
    `, movie.ID, movie.Parameters.Year, movie.Parameters.Duration, movie.Parameters.Country)
	if err != nil {
		return mapPgError(err, "upsert movie parameters")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM genre_movies WHERE movie_id = $1`, movie.ID); err != nil {
		return fmt.Errorf("clear movie genres: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM actor_movies WHERE movie_id = $1`, movie.ID); err != nil {
		return fmt.Errorf("clear movie actors: %w", err)
	}
	if err := insertMovieLinks(ctx, tx, movie.ID, genreIDs, actorIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit movie update: %w", err)
	}

	return nil
}

// Delete removes a movie; parameters, links, and rating edges cascade.
func (r *PostgresMovieRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkAnnounced records that the movie has been posted to the announcement
// channel so it is not announced twice.
func (r *PostgresMovieRepository) MarkAnnounced(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE movies SET announced = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark movie announced: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresMovieRepository) findOne(ctx context.Context, where string, arg any) (models.Movie, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Movie{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+movieColumns+` `+movieFrom+` `+where, arg)

	movie, err := scanMovie(row)
	if err != nil {
		return models.Movie{}, err
	}

	movies := []models.Movie{movie}
	if err := attachMovieRelations(ctx, conn, movies); err != nil {
		return models.Movie{}, err
	}

	return movies[0], nil
}

func (r *PostgresMovieRepository) listWhere(ctx context.Context, where string, args ...any) ([]models.Movie, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+movieColumns+` `+movieFrom+` `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
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
		return nil, fmt.Errorf("iterate movies: %w", err)
	}

	if err := attachMovieRelations(ctx, conn, movies); err != nil {
		return nil, err
	}

	return movies, nil
}

func scanMovie(row pgx.Row) (models.Movie, error) {
	var movie models.Movie
	err := row.Scan(
		&movie.ID, &movie.Title, &movie.Slug, &movie.Poster, &movie.BigPoster, &movie.VideoURL,
		&movie.Rating, &movie.CountOpened, &movie.Announced, &movie.CreatedAt, &movie.UpdatedAt,
		&movie.Parameters.Year, &movie.Parameters.Duration, &movie.Parameters.Country,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Movie{}, ErrNotFound
		}
		return models.Movie{}, fmt.Errorf("scan movie: %w", err)
	}
	return movie, nil
}

// attachMovieRelations loads genres and actors for the given movies with two
// bulk queries.
func attachMovieRelations(ctx context.Context, conn *pgxpool.Conn, movies []models.Movie) error {
	if len(movies) == 0 {
		return nil
	}

	ids := make([]string, len(movies))
	index := make(map[string]int, len(movies))
	for i, movie := range movies {
		ids[i] = movie.ID
		index[movie.ID] = i
	}

	genreRows, err := conn.Query(ctx, `
        SELECT gm.movie_id, g.id, g.name, g.slug, g.description, g.icon, g.created_at, g.updated_at
        FROM genre_movies gm
        JOIN genres g ON g.id = gm.genre_id
        WHERE gm.movie_id = ANY($1)
        ORDER BY g.name
    `, ids)
	if err != nil {
		return fmt.Errorf("query movie genres: %w", err)
	}
	defer genreRows.Close()

	for genreRows.Next() {
		var movieID string
		var genre models.Genre
		if err := genreRows.Scan(&movieID, &genre.ID, &genre.Name, &genre.Slug,
			&genre.Description, &genre.Icon, &genre.CreatedAt, &genre.UpdatedAt); err != nil {
			return fmt.Errorf("scan movie genre: %w", err)
		}
		if i, ok := index[movieID]; ok {
			movies[i].Genres = append(movies[i].Genres, genre)
		}
	}
	if err := genreRows.Err(); err != nil {
		return fmt.Errorf("iterate movie genres: %w", err)
	}

	actorRows, err := conn.Query(ctx, `
        SELECT am.movie_id, a.id, a.name, a.slug, a.photo, a.created_at, a.updated_at
        FROM actor_movies am
        JOIN actors a ON a.id = am.actor_id
        WHERE am.movie_id = ANY($1)
        ORDER BY a.name
    `, ids)
	if err != nil {
		return fmt.Errorf("query movie actors: %w", err)
	}
	defer actorRows.Close()

	for actorRows.Next() {
		var movieID string
		var actor models.Actor
		if err := actorRows.Scan(&movieID, &actor.ID, &actor.Name, &actor.Slug,
			&actor.Photo, &actor.CreatedAt, &actor.UpdatedAt); err != nil {
			return fmt.Errorf("scan movie actor: %w", err)
		}
		if i, ok := index[movieID]; ok {
			movies[i].Actors = append(movies[i].Actors, actor)
		}
	}
	if err := actorRows.Err(); err != nil {
		return fmt.Errorf("iterate movie actors: %w", err)
	}

	return nil
}

func insertMovieLinks(ctx context.Context, tx pgx.Tx, movieID string, genreIDs, actorIDs []string) error {
	for _, genreID := range genreIDs {
		if _, err := tx.Exec(ctx, `
            INSERT INTO genre_movies (movie_id, genre_id) VALUES ($1, $2)
            ON CONFLICT DO NOTHING
        `, movieID, genreID); err != nil {
			return mapPgError(err, "insert movie genre link")
		}
	}

	for _, actorID := range actorIDs {
		if _, err := tx.Exec(ctx, `
            INSERT INTO actor_movies (movie_id, actor_id) VALUES ($1, $2)
            ON CONFLICT DO NOTHING
        `, movieID, actorID); err != nil {
			return mapPgError(err, "insert movie actor link")
		}
	}

	return nil
}

var _ MovieRepository = (*PostgresMovieRepository)(nil)

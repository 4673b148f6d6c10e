package handlers

import (
	"context"
	"io"
	"time"

	"github.com/streamcatalog/backend/internal/auth"
	"github.com/streamcatalog/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth and user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	SetRefreshToken(ctx context.Context, userID, token string, createdAt, expiresAt time.Time) error
	List(ctx context.Context, searchTerm string) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}

// MovieStore captures persistence for the movie catalog.
type MovieStore interface {
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
}

// ActorStore captures persistence for actors.
type ActorStore interface {
	Create(ctx context.Context, actor models.Actor) error
	FindByID(ctx context.Context, id string) (models.Actor, error)
	FindBySlug(ctx context.Context, slug string) (models.Actor, error)
	List(ctx context.Context, searchTerm string) ([]models.Actor, error)
	Update(ctx context.Context, actor models.Actor) error
	Delete(ctx context.Context, id string) error
}

// GenreStore captures persistence for genres.
type GenreStore interface {
	Create(ctx context.Context, genre models.Genre) error
	FindByID(ctx context.Context, id string) (models.Genre, error)
	FindBySlug(ctx context.Context, slug string) (models.Genre, error)
	List(ctx context.Context, searchTerm string) ([]models.Genre, error)
	Update(ctx context.Context, genre models.Genre) error
	Delete(ctx context.Context, id string) error
}

// RatingStore maintains per-user rating edges and the derived movie aggregate.
type RatingStore interface {
	SetRating(ctx context.Context, userID, movieID string, value float64) (float64, error)
	RatingForUser(ctx context.Context, userID, movieID string) (*float64, error)
}

// FavoriteStore maintains the favorite edges between users and movies.
type FavoriteStore interface {
	ToggleFavorite(ctx context.Context, userID, movieID string) (bool, error)
	ListFavorites(ctx context.Context, userID string) ([]models.Movie, error)
}

// TokenService mints and validates signed bearer credentials.
type TokenService interface {
	IssuePair(user models.User) (models.TokenPair, error)
	Validate(token string) (auth.Claims, error)
	RefreshTTL() time.Duration
}

// MovieAnnouncer schedules a best-effort announcement of a new movie.
type MovieAnnouncer interface {
	Announce(ctx context.Context, movie models.Movie) error
}

// FileStorage persists uploaded assets and returns their public location.
type FileStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

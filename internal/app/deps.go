package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/streamcatalog/backend/internal/auth"
	"github.com/streamcatalog/backend/internal/config"
	"github.com/streamcatalog/backend/internal/db"
	"github.com/streamcatalog/backend/internal/handlers"
	"github.com/streamcatalog/backend/internal/middleware"
	"github.com/streamcatalog/backend/internal/notify"
	"github.com/streamcatalog/backend/internal/repositories"
	"github.com/streamcatalog/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background workers and must run
// before the pool closes.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	movies := repositories.NewPostgresMovieRepository(pool)
	userMovies := repositories.NewPostgresUserMovieRepository(pool)

	issuer, err := auth.NewTokenIssuer(cfg.Tokens.Secret, cfg.Tokens.AccessTTL, cfg.Tokens.RefreshTTL)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	deps := handlers.Dependencies{
		Users:       repositories.NewPostgresUserRepository(pool),
		Movies:      movies,
		Actors:      repositories.NewPostgresActorRepository(pool),
		Genres:      repositories.NewPostgresGenreRepository(pool),
		Ratings:     userMovies,
		Favorites:   userMovies,
		Tokens:      issuer,
		AuthLimiter: middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
	}

	cleanup := func(context.Context) error { return nil }

	if cfg.ObjectStore.Bucket != "" {
		files, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		deps.Files = files
	} else {
		logger.Warn("object store bucket not configured, file uploads disabled")
	}

	if cfg.Telegram.BotToken != "" {
		sender, err := notify.NewTelegramClient(cfg.Telegram)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		announcer := notify.NewAnnouncer(sender, movies, notify.AnnouncerConfig{}, logger)
		deps.Announcer = announcer
		cleanup = announcer.Shutdown
	} else {
		logger.Warn("telegram bot token not configured, announcements disabled")
	}

	return deps, cleanup, nil
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamcatalog/backend/internal/logging"
	"github.com/streamcatalog/backend/internal/models"
	"github.com/streamcatalog/backend/internal/repositories"
)

// MovieHandler implements the movie catalog endpoints. Creation may trigger a
// best-effort channel announcement; announcement failures never fail the
// request.
type MovieHandler struct {
	Movies    MovieStore
	Announcer MovieAnnouncer
	NowFunc   func() time.Time
}

// List handles GET /api/movies requests, optionally filtered by searchTerm.
func (h MovieHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	movies, err := h.Movies.List(ctx, r.URL.Query().Get("searchTerm"))
	if err != nil {
		logging.FromContext(ctx).Error("list movies failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load movies")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTOs(movies))
}

// BySlug handles GET /api/movies/by-slug/{slug} requests.
func (h MovieHandler) BySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	movie, err := h.Movies.FindBySlug(ctx, r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Movie not found.")
			return
		}
		logging.FromContext(ctx).Error("movie lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load movie")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTO(movie))
}

// ByActor handles GET /api/movies/by-actor/{actorId} requests.
func (h MovieHandler) ByActor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	movies, err := h.Movies.ListByActor(ctx, r.PathValue("actorId"))
	if err != nil {
		logging.FromContext(ctx).Error("list movies by actor failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load movies")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTOs(movies))
}

// ByGenres handles GET /api/movies/by-genres requests. Genre ids arrive as
// repeated genreIds query parameters or one comma-separated value.
func (h MovieHandler) ByGenres(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var genreIDs []string
	for _, raw := range r.URL.Query()["genreIds"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				genreIDs = append(genreIDs, id)
			}
		}
	}

	if len(genreIDs) == 0 {
		respondError(ctx, w, http.StatusBadRequest, "genreIds is required")
		return
	}

	movies, err := h.Movies.ListByGenres(ctx, genreIDs)
	if err != nil {
		logging.FromContext(ctx).Error("list movies by genres failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load movies")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTOs(movies))
}

// MostPopular handles GET /api/movies/most-popular requests.
func (h MovieHandler) MostPopular(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	movies, err := h.Movies.ListMostPopular(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list popular movies failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load movies")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTOs(movies))
}

// UpdateCountOpened handles POST /api/movies/update-count-opened requests.
func (h MovieHandler) UpdateCountOpened(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req struct {
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Slug) == "" {
		logger.Warn("invalid count-opened payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "slug is required")
		return
	}

	movie, err := h.Movies.IncrementCountOpened(ctx, req.Slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Movie not found.")
			return
		}
		logger.Error("increment count opened failed", "error", err, "slug", req.Slug)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update movie")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTO(movie))
}

// Create handles POST /api/movies requests (admin only).
func (h MovieHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req movieCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid movie payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		logger.Warn("movie validation failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.now()
	movie := models.Movie{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Slug:      strings.ToLower(req.Slug),
		Poster:    req.Poster,
		BigPoster: req.BigPoster,
		VideoURL:  req.VideoURL,
		Rating:    models.DefaultMovieRating,
		Parameters: models.MovieParameters{
			Year:     req.Parameters.Year,
			Duration: req.Parameters.Duration,
			Country:  req.Parameters.Country,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Rating != nil {
		movie.Rating = *req.Rating
	}
	if req.CountOpened != nil {
		movie.CountOpened = *req.CountOpened
	}
	if req.IsSendTelegram != nil {
		movie.Announced = *req.IsSendTelegram
	}

	if err := h.Movies.Create(ctx, movie, req.Genres, req.Actors); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			logger.Warn("movie slug conflict", "slug", movie.Slug)
			respondError(ctx, w, http.StatusConflict, "Movie with this slug already exists")
		case errors.Is(err, repositories.ErrNotFound):
			logger.Warn("movie references unknown genre or actor", "slug", movie.Slug)
			respondError(ctx, w, http.StatusBadRequest, "unknown genre or actor id")
		default:
			logger.Error("create movie failed", "error", err, "slug", movie.Slug)
			respondError(ctx, w, http.StatusInternalServerError, "failed to create movie")
		}
		return
	}

	h.announce(ctx, movie)

	created, err := h.Movies.FindByID(ctx, movie.ID)
	if err != nil {
		logger.Error("reload created movie failed", "error", err, "movieId", movie.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load movie")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTO(created))
}

// GetByID handles GET /api/movies/{id} requests (admin only).
func (h MovieHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	movie, err := h.Movies.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Movie not found.")
			return
		}
		logging.FromContext(ctx).Error("movie lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load movie")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTO(movie))
}

// Update handles PUT /api/movies/{id} requests (admin only). Absent fields
// keep their current values.
func (h MovieHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	movie, err := h.Movies.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Movie not found.")
			return
		}
		logger.Error("movie lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load movie")
		return
	}

	var req movieUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid movie payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		movie.Title = *req.Title
	}
	if req.Slug != nil {
		movie.Slug = strings.ToLower(*req.Slug)
	}
	if req.Poster != nil {
		movie.Poster = *req.Poster
	}
	if req.BigPoster != nil {
		movie.BigPoster = *req.BigPoster
	}
	if req.VideoURL != nil {
		movie.VideoURL = *req.VideoURL
	}
	if req.Rating != nil {
		movie.Rating = *req.Rating
	}
	if req.CountOpened != nil {
		movie.CountOpened = *req.CountOpened
	}
	if req.IsSendTelegram != nil {
		movie.Announced = *req.IsSendTelegram
	}
	if req.Parameters != nil {
		movie.Parameters = models.MovieParameters{
			Year:     req.Parameters.Year,
			Duration: req.Parameters.Duration,
			Country:  req.Parameters.Country,
		}
	}
	movie.UpdatedAt = h.now()

	genreIDs := req.Genres
	if genreIDs == nil {
		genreIDs = idsOfGenres(movie.Genres)
	}
	actorIDs := req.Actors
	if actorIDs == nil {
		actorIDs = idsOfActors(movie.Actors)
	}

	if err := h.Movies.Update(ctx, movie, genreIDs, actorIDs); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "Movie with this slug already exists")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusBadRequest, "unknown genre or actor id")
		default:
			logger.Error("update movie failed", "error", err, "movieId", movie.ID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to update movie")
		}
		return
	}

	updated, err := h.Movies.FindByID(ctx, movie.ID)
	if err != nil {
		logger.Error("reload updated movie failed", "error", err, "movieId", movie.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load movie")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTO(updated))
}

// Delete handles DELETE /api/movies/{id} requests (admin only).
func (h MovieHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	movie, err := h.Movies.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Movie not found.")
			return
		}
		logging.FromContext(ctx).Error("movie lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load movie")
		return
	}

	if err := h.Movies.Delete(ctx, movie.ID); err != nil {
		logging.FromContext(ctx).Error("delete movie failed", "error", err, "movieId", movie.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete movie")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTO(movie))
}

// announce schedules the channel post for a movie that has not been announced
// yet. Failures are the announcer's to log; the request never waits on it.
func (h MovieHandler) announce(ctx context.Context, movie models.Movie) {
	if h.Announcer == nil || movie.Announced {
		return
	}
	if err := h.Announcer.Announce(ctx, movie); err != nil {
		logging.FromContext(ctx).Warn("failed to schedule movie announcement", "error", err, "movieId", movie.ID)
	}
}

type movieCreateRequest struct {
	Title          string            `json:"title" validate:"required"`
	Slug           string            `json:"slug" validate:"required"`
	Poster         string            `json:"poster"`
	BigPoster      string            `json:"bigPoster"`
	VideoURL       string            `json:"videoUrl" validate:"required"`
	Parameters     parametersPayload `json:"parameters"`
	Genres         []string          `json:"genres"`
	Actors         []string          `json:"actors"`
	Rating         *float64          `json:"rating" validate:"omitempty,gte=0,lte=10"`
	CountOpened    *int              `json:"countOpened" validate:"omitempty,gte=0"`
	IsSendTelegram *bool             `json:"isSendTelegram"`
}

type movieUpdateRequest struct {
	Title          *string            `json:"title"`
	Slug           *string            `json:"slug"`
	Poster         *string            `json:"poster"`
	BigPoster      *string            `json:"bigPoster"`
	VideoURL       *string            `json:"videoUrl"`
	Parameters     *parametersPayload `json:"parameters"`
	Genres         []string           `json:"genres"`
	Actors         []string           `json:"actors"`
	Rating         *float64           `json:"rating"`
	CountOpened    *int               `json:"countOpened"`
	IsSendTelegram *bool              `json:"isSendTelegram"`
}

type parametersPayload struct {
	Year     int    `json:"year"`
	Duration int    `json:"duration"`
	Country  string `json:"country"`
}

func idsOfGenres(genres []models.Genre) []string {
	ids := make([]string, 0, len(genres))
	for _, genre := range genres {
		ids = append(ids, genre.ID)
	}
	return ids
}

func idsOfActors(actors []models.Actor) []string {
	ids := make([]string, 0, len(actors))
	for _, actor := range actors {
		ids = append(ids, actor.ID)
	}
	return ids
}

func (h MovieHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

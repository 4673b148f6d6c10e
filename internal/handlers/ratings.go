package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/streamcatalog/backend/internal/logging"
	"github.com/streamcatalog/backend/internal/repositories"
)

// RatingHandler implements the per-user rating endpoints. Callers are
// authenticated by the bearer middleware; the user id comes from the token
// claims, never from the request body.
type RatingHandler struct {
	Ratings RatingStore
}

// SetRating handles POST /api/ratings/set-rating requests.
func (h RatingHandler) SetRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Ratings == nil {
		logger.Error("rating store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "rating services unavailable")
		return
	}

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Please, sign in!")
		return
	}

	var req setRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid set-rating payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		logger.Warn("set-rating validation failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.Ratings.SetRating(ctx, claims.UserID, req.MovieID, req.Value); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("set-rating unknown movie", "movieId", req.MovieID)
			respondError(ctx, w, http.StatusNotFound, "Movie not found.")
			return
		}
		logger.Error("set-rating failed", "error", err, "movieId", req.MovieID, "userId", claims.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to set rating")
		return
	}

	respondJSON(ctx, w, http.StatusOK, setRatingResponse{
		UserID:  claims.UserID,
		MovieID: req.MovieID,
		Rating:  req.Value,
	})
}

// GetByMovie handles GET /api/ratings/{movieId} requests. It returns the
// caller's own rating as a bare number, 0 when the caller never rated the
// movie.
func (h RatingHandler) GetByMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Ratings == nil {
		logger.Error("rating store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "rating services unavailable")
		return
	}

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Please, sign in!")
		return
	}

	movieID := r.PathValue("movieId")
	if movieID == "" {
		respondError(ctx, w, http.StatusBadRequest, "movie id is required")
		return
	}

	rating, err := h.Ratings.RatingForUser(ctx, claims.UserID, movieID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusOK, float64(0))
			return
		}
		logger.Error("rating lookup failed", "error", err, "movieId", movieID, "userId", claims.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load rating")
		return
	}

	if rating == nil {
		respondJSON(ctx, w, http.StatusOK, float64(0))
		return
	}

	respondJSON(ctx, w, http.StatusOK, *rating)
}

type setRatingRequest struct {
	MovieID string  `json:"movieId" validate:"required"`
	Value   float64 `json:"value" validate:"gte=0,lte=10"`
}

type setRatingResponse struct {
	UserID  string  `json:"userId"`
	MovieID string  `json:"movieId"`
	Rating  float64 `json:"rating"`
}

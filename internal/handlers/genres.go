package handlers

import (
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

// GenreHandler implements the genre catalog endpoints.
type GenreHandler struct {
	Genres  GenreStore
	NowFunc func() time.Time
}

// List handles GET /api/genres requests, optionally filtered by searchTerm.
func (h GenreHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	genres, err := h.Genres.List(ctx, r.URL.Query().Get("searchTerm"))
	if err != nil {
		logging.FromContext(ctx).Error("list genres failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load genres")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toGenreDTOs(genres))
}

// BySlug handles GET /api/genres/by-slug/{slug} requests.
func (h GenreHandler) BySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	genre, err := h.Genres.FindBySlug(ctx, r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Genre not found.")
			return
		}
		logging.FromContext(ctx).Error("genre lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load genre")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toGenreDTO(genre))
}

// Create handles POST /api/genres requests (admin only).
func (h GenreHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req genreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid genre payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		logger.Warn("genre validation failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.now()
	genre := models.Genre{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Slug:        strings.ToLower(req.Slug),
		Description: req.Description,
		Icon:        req.Icon,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Genres.Create(ctx, genre); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "Genre with this slug already exists")
			return
		}
		logger.Error("create genre failed", "error", err, "slug", genre.Slug)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create genre")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toGenreDTO(genre))
}

// GetByID handles GET /api/genres/{id} requests (admin only).
func (h GenreHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	genre, err := h.Genres.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Genre not found.")
			return
		}
		logging.FromContext(ctx).Error("genre lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load genre")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toGenreDTO(genre))
}

// Update handles PUT /api/genres/{id} requests (admin only).
func (h GenreHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	genre, err := h.Genres.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Genre not found.")
			return
		}
		logger.Error("genre lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load genre")
		return
	}

	var req genreUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid genre payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		genre.Name = *req.Name
	}
	if req.Slug != nil {
		genre.Slug = strings.ToLower(*req.Slug)
	}
	if req.Description != nil {
		genre.Description = *req.Description
	}
	if req.Icon != nil {
		genre.Icon = *req.Icon
	}
	genre.UpdatedAt = h.now()

	if err := h.Genres.Update(ctx, genre); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "Genre with this slug already exists")
			return
		}
		logger.Error("update genre failed", "error", err, "genreId", genre.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update genre")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toGenreDTO(genre))
}

// Delete handles DELETE /api/genres/{id} requests (admin only).
func (h GenreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	genre, err := h.Genres.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Genre not found.")
			return
		}
		logging.FromContext(ctx).Error("genre lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load genre")
		return
	}

	if err := h.Genres.Delete(ctx, genre.ID); err != nil {
		logging.FromContext(ctx).Error("delete genre failed", "error", err, "genreId", genre.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete genre")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toGenreDTO(genre))
}

type genreRequest struct {
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug" validate:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type genreUpdateRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

func (h GenreHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

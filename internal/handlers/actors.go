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

// ActorHandler implements the actor catalog endpoints.
type ActorHandler struct {
	Actors  ActorStore
	NowFunc func() time.Time
}

// List handles GET /api/actors requests, optionally filtered by searchTerm.
func (h ActorHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actors, err := h.Actors.List(ctx, r.URL.Query().Get("searchTerm"))
	if err != nil {
		logging.FromContext(ctx).Error("list actors failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load actors")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toActorDTOs(actors))
}

// BySlug handles GET /api/actors/by-slug/{slug} requests.
func (h ActorHandler) BySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := h.Actors.FindBySlug(ctx, r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Actor not found.")
			return
		}
		logging.FromContext(ctx).Error("actor lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load actor")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toActorDTO(actor))
}

// Create handles POST /api/actors requests (admin only).
func (h ActorHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid actor payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		logger.Warn("actor validation failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.now()
	actor := models.Actor{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Slug:      strings.ToLower(req.Slug),
		Photo:     req.Photo,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Actors.Create(ctx, actor); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "Actor with this slug already exists")
			return
		}
		logger.Error("create actor failed", "error", err, "slug", actor.Slug)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create actor")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toActorDTO(actor))
}

// GetByID handles GET /api/actors/{id} requests (admin only).
func (h ActorHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := h.Actors.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Actor not found.")
			return
		}
		logging.FromContext(ctx).Error("actor lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load actor")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toActorDTO(actor))
}

// Update handles PUT /api/actors/{id} requests (admin only).
func (h ActorHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, err := h.Actors.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Actor not found.")
			return
		}
		logger.Error("actor lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load actor")
		return
	}

	var req actorUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid actor payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		actor.Name = *req.Name
	}
	if req.Slug != nil {
		actor.Slug = strings.ToLower(*req.Slug)
	}
	if req.Photo != nil {
		actor.Photo = *req.Photo
	}
	actor.UpdatedAt = h.now()

	if err := h.Actors.Update(ctx, actor); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "Actor with this slug already exists")
			return
		}
		logger.Error("update actor failed", "error", err, "actorId", actor.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update actor")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toActorDTO(actor))
}

// Delete handles DELETE /api/actors/{id} requests (admin only).
func (h ActorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := h.Actors.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Actor not found.")
			return
		}
		logging.FromContext(ctx).Error("actor lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load actor")
		return
	}

	if err := h.Actors.Delete(ctx, actor.ID); err != nil {
		logging.FromContext(ctx).Error("delete actor failed", "error", err, "actorId", actor.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete actor")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toActorDTO(actor))
}

type actorRequest struct {
	Name  string `json:"name" validate:"required"`
	Slug  string `json:"slug" validate:"required"`
	Photo string `json:"photo"`
}

type actorUpdateRequest struct {
	Name  *string `json:"name"`
	Slug  *string `json:"slug"`
	Photo *string `json:"photo"`
}

func (h ActorHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

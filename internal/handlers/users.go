package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/streamcatalog/backend/internal/auth"
	"github.com/streamcatalog/backend/internal/logging"
	"github.com/streamcatalog/backend/internal/repositories"
)

// UserHandler implements the profile and admin user endpoints plus the
// favorites toggle backed by rating edges.
type UserHandler struct {
	Users     UserStore
	Favorites FavoriteStore
	NowFunc   func() time.Time
}

// Profile handles GET /api/users/profile requests.
func (h UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Please, sign in!")
		return
	}

	user, err := h.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "User not found.")
			return
		}
		logging.FromContext(ctx).Error("profile lookup failed", "error", err, "userId", claims.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toUserDTO(user))
}

// UpdateProfile handles PUT /api/users/profile requests. The caller may change
// their own email and password but never their admin flag.
func (h UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Please, sign in!")
		return
	}

	h.updateUser(w, r, claims.UserID, false)
}

// ListFavorites handles GET /api/users/profile/favorites requests.
func (h UserHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Please, sign in!")
		return
	}

	movies, err := h.Favorites.ListFavorites(ctx, claims.UserID)
	if err != nil {
		logging.FromContext(ctx).Error("list favorites failed", "error", err, "userId", claims.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load favorites")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toMovieDTOs(movies))
}

// ToggleFavorite handles POST /api/users/profile/favorites requests. A second
// toggle on the same movie removes it again.
func (h UserHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "Please, sign in!")
		return
	}

	var req struct {
		MovieID string `json:"movieId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.MovieID) == "" {
		logger.Warn("invalid favorite payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "movieId is required")
		return
	}

	favorited, err := h.Favorites.ToggleFavorite(ctx, claims.UserID, req.MovieID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "Movie not found.")
			return
		}
		logger.Error("toggle favorite failed", "error", err, "movieId", req.MovieID, "userId", claims.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update favorites")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"favorited": favorited})
}

// List handles GET /api/users requests (admin only).
func (h UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.Users.List(ctx, r.URL.Query().Get("searchTerm"))
	if err != nil {
		logging.FromContext(ctx).Error("list users failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load users")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toUserDTOs(users))
}

// Count handles GET /api/users/count requests (admin only). It returns a bare
// number.
func (h UserHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.Users.Count(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("count users failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to count users")
		return
	}

	respondJSON(ctx, w, http.StatusOK, count)
}

// GetByID handles GET /api/users/{id} requests (admin only).
func (h UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Users.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "User not found.")
			return
		}
		logging.FromContext(ctx).Error("user lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load user")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toUserDTO(user))
}

// Update handles PUT /api/users/{id} requests (admin only). Admins may also
// flip the isAdmin flag.
func (h UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.updateUser(w, r, r.PathValue("id"), true)
}

// Delete handles DELETE /api/users/{id} requests (admin only).
func (h UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Users.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "User not found.")
			return
		}
		logging.FromContext(ctx).Error("user lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load user")
		return
	}

	if err := h.Users.Delete(ctx, user.ID); err != nil {
		logging.FromContext(ctx).Error("delete user failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toUserDTO(user))
}

func (h UserHandler) updateUser(w http.ResponseWriter, r *http.Request, userID string, allowAdminFlag bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "User not found.")
			return
		}
		logger.Error("user lookup failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load user")
		return
	}

	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid user payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "Invalid email")
			return
		}
		user.Email = email
	}

	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < 6 {
			respondError(ctx, w, http.StatusBadRequest, "Invalid password length")
			return
		}
		hash, salt, err := auth.HashPassword(*req.Password)
		if err != nil {
			logger.Error("failed to hash password", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
			return
		}
		user.PasswordHash = hash
		user.PasswordSalt = salt
	}

	if allowAdminFlag && req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}
	user.UpdatedAt = h.now()

	if err := h.Users.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "User with this email already exists")
			return
		}
		logger.Error("update user failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update user")
		return
	}

	respondJSON(ctx, w, http.StatusOK, toUserDTO(user))
}

type userUpdateRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"isAdmin"`
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamcatalog/backend/internal/auth"
	"github.com/streamcatalog/backend/internal/logging"
	"github.com/streamcatalog/backend/internal/models"
	"github.com/streamcatalog/backend/internal/repositories"
)

const refreshCookieName = "refreshToken"

// AuthHandler implements the register, login, and token refresh endpoints.
// Refresh tokens are rotated on every successful call: the new value is
// written to the user row and mirrored into an HTTP-only cookie, and only the
// stored value is accepted on the next refresh.
type AuthHandler struct {
	Users   UserStore
	Tokens  TokenService
	Limiter RateLimiter
	NowFunc func() time.Time
}

// Register handles POST /api/auth/register requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil)
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	if !allowRequest(h.Limiter, r, "auth") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		logger.Warn("register invalid email", "email", req.Email)
		respondError(ctx, w, http.StatusBadRequest, "Invalid email")
		return
	}

	if len(req.Password) < 6 {
		logger.Warn("register password too short", "email", req.Email)
		respondError(ctx, w, http.StatusBadRequest, "Invalid password length")
		return
	}

	hash, salt, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		PasswordSalt: salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("register duplicate email", "email", req.Email)
			respondError(ctx, w, http.StatusConflict, "User with this email already exists")
			return
		}
		logger.Error("register failed to create user", "error", err, "email", req.Email)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	h.issueSession(ctx, w, user)
}

// Login handles POST /api/auth/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil)
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	if !allowRequest(h.Limiter, r, "auth") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		logger.Warn("login missing credentials", "email", req.Email)
		respondError(ctx, w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		logger.Warn("login user lookup failed", "email", req.Email, "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "Wrong password!")
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash, user.PasswordSalt) {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "Wrong password!")
		return
	}

	h.issueSession(ctx, w, user)
}

// Refresh handles POST /api/auth/login/access-token requests. The refresh
// token travels only in the cookie; there is no request body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil)
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		logger.Warn("refresh missing cookie")
		respondError(ctx, w, http.StatusUnauthorized, "Please, sign in!")
		return
	}

	claims, err := h.Tokens.Validate(cookie.Value)
	if err != nil {
		logger.Warn("refresh token validation failed", "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "Invalid token or expired!")
		return
	}

	user, err := h.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		logger.Warn("refresh user lookup failed", "userId", claims.UserID, "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "Invalid token.")
		return
	}

	// Rotation invalidates older tokens: only the value stored on the user
	// row is accepted, well-signed or not.
	if user.RefreshToken == "" || user.RefreshToken != cookie.Value {
		logger.Warn("refresh token does not match stored token", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "Invalid token.")
		return
	}

	if h.now().After(user.RefreshExpiresAt) {
		logger.Warn("refresh token expired", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "Token expired.")
		return
	}

	h.issueSession(ctx, w, user)
}

// issueSession mints a token pair, rotates the stored refresh token, sets the
// refresh cookie, and writes the auth response.
func (h AuthHandler) issueSession(ctx context.Context, w http.ResponseWriter, user models.User) {
	logger := logging.FromContext(ctx)

	pair, err := h.Tokens.IssuePair(user)
	if err != nil {
		logger.Error("failed to issue token pair", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	now := h.now()
	if err := h.Users.SetRefreshToken(ctx, user.ID, pair.RefreshToken, now, pair.RefreshExpiresAt); err != nil {
		logger.Error("failed to store refresh token", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(ctx, w, http.StatusOK, authResponse{
		User:         toUserDTO(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User         userDTO `json:"user"`
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/streamcatalog/backend/internal/auth"
	"github.com/streamcatalog/backend/internal/models"
	"github.com/streamcatalog/backend/internal/repositories"
)

type inMemoryUserStore struct {
	users map[string]models.User
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) Update(_ context.Context, user models.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) SetRefreshToken(_ context.Context, userID, token string, createdAt, expiresAt time.Time) error {
	user, ok := s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.RefreshToken = token
	user.RefreshCreatedAt = createdAt
	user.RefreshExpiresAt = expiresAt
	s.users[userID] = user
	return nil
}

func (s *inMemoryUserStore) List(_ context.Context, searchTerm string) ([]models.User, error) {
	var users []models.User
	for _, user := range s.users {
		if searchTerm == "" || strings.Contains(user.Email, strings.ToLower(searchTerm)) {
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *inMemoryUserStore) Count(_ context.Context) (int, error) {
	return len(s.users), nil
}

func (s *inMemoryUserStore) Delete(_ context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func newTestIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("handler-test-secret", time.Hour, 15*24*time.Hour)
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	return issuer
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == refreshCookieName {
			return cookie
		}
	}
	t.Fatal("expected refresh cookie to be set")
	return nil
}

func TestAuthHandlerRegister(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Tokens: newTestIssuer(t)}

	body, err := json.Marshal(credentialsRequest{Email: "New@Example.com", Password: "supersafe"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected tokens to be issued")
	}
	if resp.User.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}
	if resp.User.IsAdmin {
		t.Fatal("fresh accounts must not be admins")
	}

	cookie := refreshCookie(t, rec)
	if !cookie.HttpOnly {
		t.Fatal("refresh cookie must be http-only")
	}
	if cookie.Value != resp.RefreshToken {
		t.Fatal("refresh cookie must carry the issued refresh token")
	}

	stored, err := store.FindByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if len(stored.PasswordHash) == 0 || len(stored.PasswordSalt) == 0 {
		t.Fatal("stored password is not hashed")
	}
	if stored.RefreshToken != resp.RefreshToken {
		t.Fatal("expected refresh token to be stored on the user row")
	}
}

func TestAuthHandlerRegisterValidation(t *testing.T) {
	handler := AuthHandler{Users: newInMemoryUserStore(), Tokens: newTestIssuer(t)}

	cases := []struct {
		name    string
		payload credentialsRequest
		message string
	}{
		{"bad email", credentialsRequest{Email: "not-an-email", Password: "supersafe"}, "Invalid email"},
		{"short password", credentialsRequest{Email: "ok@example.com", Password: "short"}, "Invalid password length"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, err := json.Marshal(tc.payload)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			handler.Register(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.message) {
				t.Fatalf("expected error %q in body %s", tc.message, rec.Body.String())
			}
		})
	}
}

func TestAuthHandlerRegisterDuplicateEmail(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Tokens: newTestIssuer(t)}

	register := func() *httptest.ResponseRecorder {
		body, err := json.Marshal(credentialsRequest{Email: "dupe@example.com", Password: "supersafe"})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Register(rec, req)
		return rec
	}

	if rec := register(); rec.Code != http.StatusOK {
		t.Fatalf("first registration should succeed, got %d", rec.Code)
	}
	rec := register()
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "User with this email already exists") {
		t.Fatalf("unexpected conflict body %s", rec.Body.String())
	}
}

func TestAuthHandlerLoginRoundTrip(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Tokens: newTestIssuer(t)}

	registerBody, err := json.Marshal(credentialsRequest{Email: "login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	registerReq := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(registerBody))
	registerRec := httptest.NewRecorder()
	handler.Register(registerRec, registerReq)
	if registerRec.Code != http.StatusOK {
		t.Fatalf("register failed: %d %s", registerRec.Code, registerRec.Body.String())
	}

	loginBody, err := json.Marshal(credentialsRequest{Email: "login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loginReq := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(loginBody))
	loginRec := httptest.NewRecorder()
	handler.Login(loginRec, loginReq)

	if loginRec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, loginRec.Code, loginRec.Body.String())
	}

	var resp authResponse
	if err := json.NewDecoder(loginRec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected tokens to be issued")
	}
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Tokens: newTestIssuer(t)}

	registerBody, err := json.Marshal(credentialsRequest{Email: "victim@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	registerReq := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(registerBody))
	registerRec := httptest.NewRecorder()
	handler.Register(registerRec, registerReq)
	if registerRec.Code != http.StatusOK {
		t.Fatalf("register failed: %d", registerRec.Code)
	}

	for _, email := range []string{"victim@example.com", "nobody@example.com"} {
		body, err := json.Marshal(credentialsRequest{Email: email, Password: "wrongpass"})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected status %d got %d for %s", http.StatusUnauthorized, rec.Code, email)
		}
		if !strings.Contains(rec.Body.String(), "Wrong password!") {
			t.Fatalf("unexpected body %s", rec.Body.String())
		}
	}
}

func TestAuthHandlerRefreshRotatesToken(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Tokens: newTestIssuer(t)}

	registerBody, err := json.Marshal(credentialsRequest{Email: "rotate@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	registerReq := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(registerBody))
	registerRec := httptest.NewRecorder()
	handler.Register(registerRec, registerReq)
	if registerRec.Code != http.StatusOK {
		t.Fatalf("register failed: %d", registerRec.Code)
	}
	firstCookie := refreshCookie(t, registerRec)

	refreshReq := httptest.NewRequest(http.MethodPost, "/api/auth/login/access-token", nil)
	refreshReq.AddCookie(firstCookie)
	refreshRec := httptest.NewRecorder()
	handler.Refresh(refreshRec, refreshReq)

	if refreshRec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, refreshRec.Code, refreshRec.Body.String())
	}

	secondCookie := refreshCookie(t, refreshRec)
	if secondCookie.Value == firstCookie.Value {
		t.Fatal("expected refresh to rotate the stored token")
	}

	// The superseded token no longer matches the stored value.
	staleReq := httptest.NewRequest(http.MethodPost, "/api/auth/login/access-token", nil)
	staleReq.AddCookie(firstCookie)
	staleRec := httptest.NewRecorder()
	handler.Refresh(staleRec, staleReq)

	if staleRec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d for stale token, got %d", http.StatusUnauthorized, staleRec.Code)
	}
	if !strings.Contains(staleRec.Body.String(), "Invalid token.") {
		t.Fatalf("unexpected body %s", staleRec.Body.String())
	}
}

func TestAuthHandlerRefreshMissingCookie(t *testing.T) {
	handler := AuthHandler{Users: newInMemoryUserStore(), Tokens: newTestIssuer(t)}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login/access-token", nil)
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Please, sign in!") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAuthHandlerRefreshForgedCookie(t *testing.T) {
	handler := AuthHandler{Users: newInMemoryUserStore(), Tokens: newTestIssuer(t)}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login/access-token", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "garbage.token.value"})
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid token or expired!") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAuthHandlerRefreshExpiredStoredToken(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Tokens: newTestIssuer(t)}

	registerBody, err := json.Marshal(credentialsRequest{Email: "expired@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	registerReq := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(registerBody))
	registerRec := httptest.NewRecorder()
	handler.Register(registerRec, registerReq)
	if registerRec.Code != http.StatusOK {
		t.Fatalf("register failed: %d", registerRec.Code)
	}
	cookie := refreshCookie(t, registerRec)

	// Fast-forward past the stored expiry without touching the token itself.
	handler.NowFunc = func() time.Time { return time.Now().UTC().Add(16 * 24 * time.Hour) }

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login/access-token", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Token expired.") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func TestAuthHandlerRateLimited(t *testing.T) {
	handler := AuthHandler{Users: newInMemoryUserStore(), Tokens: newTestIssuer(t), Limiter: denyAllLimiter{}}

	body, err := json.Marshal(credentialsRequest{Email: "rl@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d got %d", http.StatusTooManyRequests, rec.Code)
	}
}

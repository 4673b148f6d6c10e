package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/streamcatalog/backend/internal/auth"
	"github.com/streamcatalog/backend/internal/models"
	"github.com/streamcatalog/backend/internal/repositories"
)

type inMemoryFavoriteStore struct {
	movies    map[string]models.Movie
	favorites map[string]map[string]bool
}

func newInMemoryFavoriteStore(movies ...models.Movie) *inMemoryFavoriteStore {
	byID := make(map[string]models.Movie, len(movies))
	for _, movie := range movies {
		byID[movie.ID] = movie
	}
	return &inMemoryFavoriteStore{movies: byID, favorites: make(map[string]map[string]bool)}
}

func (s *inMemoryFavoriteStore) ToggleFavorite(_ context.Context, userID, movieID string) (bool, error) {
	if _, ok := s.movies[movieID]; !ok {
		return false, repositories.ErrNotFound
	}
	if s.favorites[userID] == nil {
		s.favorites[userID] = make(map[string]bool)
	}
	if s.favorites[userID][movieID] {
		delete(s.favorites[userID], movieID)
		return false, nil
	}
	s.favorites[userID][movieID] = true
	return true, nil
}

func (s *inMemoryFavoriteStore) ListFavorites(_ context.Context, userID string) ([]models.Movie, error) {
	var movies []models.Movie
	for movieID := range s.favorites[userID] {
		movies = append(movies, s.movies[movieID])
	}
	return movies, nil
}

func userTestRouter(users UserStore, favorites FavoriteStore, tokens TokenService) *http.ServeMux {
	return NewRouter(Dependencies{Users: users, Favorites: favorites, Tokens: tokens})
}

func seedUser(t *testing.T, store *inMemoryUserStore, user models.User) models.User {
	t.Helper()
	hash, salt, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user.PasswordHash = hash
	user.PasswordSalt = salt
	store.users[user.ID] = user
	return user
}

func TestUserProfile(t *testing.T) {
	issuer := newTestIssuer(t)
	store := newInMemoryUserStore()
	user := seedUser(t, store, models.User{ID: "user-1", Email: "me@example.com"})
	mux := userTestRouter(store, nil, issuer)

	req := authenticatedRequest(t, issuer, user, http.MethodGet, "/api/users/profile", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp userDTO
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "user-1" || resp.Email != "me@example.com" {
		t.Fatalf("unexpected profile %+v", resp)
	}
}

func TestUserProfileRequiresAuth(t *testing.T) {
	mux := userTestRouter(newInMemoryUserStore(), nil, newTestIssuer(t))

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestUserUpdateProfileCannotGrantAdmin(t *testing.T) {
	issuer := newTestIssuer(t)
	store := newInMemoryUserStore()
	user := seedUser(t, store, models.User{ID: "user-1", Email: "me@example.com"})
	mux := userTestRouter(store, nil, issuer)

	payload := []byte(`{"email":"next@example.com","isAdmin":true}`)
	req := authenticatedRequest(t, issuer, user, http.MethodPut, "/api/users/profile", payload)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	updated, err := store.FindByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if updated.Email != "next@example.com" {
		t.Fatalf("expected email update, got %q", updated.Email)
	}
	if updated.IsAdmin {
		t.Fatal("profile update must not grant admin rights")
	}
}

func TestUserAdminUpdateGrantsAdmin(t *testing.T) {
	issuer := newTestIssuer(t)
	store := newInMemoryUserStore()
	admin := seedUser(t, store, models.User{ID: "admin-1", Email: "admin@example.com", IsAdmin: true})
	seedUser(t, store, models.User{ID: "user-2", Email: "target@example.com"})
	mux := userTestRouter(store, nil, issuer)

	payload := []byte(`{"isAdmin":true}`)
	req := authenticatedRequest(t, issuer, admin, http.MethodPut, "/api/users/user-2", payload)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	updated, err := store.FindByID(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !updated.IsAdmin {
		t.Fatal("expected admin update to grant admin rights")
	}
}

func TestUserCountRequiresAdmin(t *testing.T) {
	issuer := newTestIssuer(t)
	store := newInMemoryUserStore()
	user := seedUser(t, store, models.User{ID: "user-1", Email: "me@example.com"})
	admin := seedUser(t, store, models.User{ID: "admin-1", Email: "admin@example.com", IsAdmin: true})
	mux := userTestRouter(store, nil, issuer)

	req := authenticatedRequest(t, issuer, user, http.MethodGet, "/api/users/count", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d for non-admin, got %d", http.StatusForbidden, rec.Code)
	}

	req = authenticatedRequest(t, issuer, admin, http.MethodGet, "/api/users/count", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d for admin, got %d", http.StatusOK, rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "2" {
		t.Fatalf("expected bare count 2, got %s", body)
	}
}

func TestToggleFavoriteRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)
	userStore := newInMemoryUserStore()
	user := seedUser(t, userStore, models.User{ID: "user-1", Email: "fav@example.com"})
	favorites := newInMemoryFavoriteStore(models.Movie{ID: "m-1", Title: "Echo", Slug: "echo"})
	mux := userTestRouter(userStore, favorites, issuer)

	toggle := func() *httptest.ResponseRecorder {
		req := authenticatedRequest(t, issuer, user, http.MethodPost, "/api/users/profile/favorites",
			[]byte(`{"movieId":"m-1"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := toggle()
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle failed: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"favorited":true`) {
		t.Fatalf("expected favorited true, got %s", rec.Body.String())
	}

	listReq := authenticatedRequest(t, issuer, user, http.MethodGet, "/api/users/profile/favorites", nil)
	listRec := httptest.NewRecorder()
	mux.ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list favorites failed: %d", listRec.Code)
	}
	var favoritesResp []movieDTO
	if err := json.NewDecoder(listRec.Body).Decode(&favoritesResp); err != nil {
		t.Fatalf("decode favorites: %v", err)
	}
	if len(favoritesResp) != 1 || favoritesResp[0].ID != "m-1" {
		t.Fatalf("unexpected favorites %+v", favoritesResp)
	}

	rec = toggle()
	if rec.Code != http.StatusOK {
		t.Fatalf("second toggle failed: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"favorited":false`) {
		t.Fatalf("expected favorited false, got %s", rec.Body.String())
	}
}

func TestToggleFavoriteUnknownMovie(t *testing.T) {
	issuer := newTestIssuer(t)
	userStore := newInMemoryUserStore()
	user := seedUser(t, userStore, models.User{ID: "user-1", Email: "fav@example.com"})
	mux := userTestRouter(userStore, newInMemoryFavoriteStore(), issuer)

	req := authenticatedRequest(t, issuer, user, http.MethodPost, "/api/users/profile/favorites",
		[]byte(`{"movieId":"missing"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/streamcatalog/backend/internal/models"
	"github.com/streamcatalog/backend/internal/repositories"
)

type inMemoryMovieStore struct {
	movies map[string]models.Movie
}

func newInMemoryMovieStore() *inMemoryMovieStore {
	return &inMemoryMovieStore{movies: make(map[string]models.Movie)}
}

func (s *inMemoryMovieStore) Create(_ context.Context, movie models.Movie, genreIDs, actorIDs []string) error {
	for _, existing := range s.movies {
		if existing.Slug == movie.Slug {
			return repositories.ErrConflict
		}
	}
	s.movies[movie.ID] = movie
	return nil
}

func (s *inMemoryMovieStore) FindByID(_ context.Context, id string) (models.Movie, error) {
	movie, ok := s.movies[id]
	if !ok {
		return models.Movie{}, repositories.ErrNotFound
	}
	return movie, nil
}

func (s *inMemoryMovieStore) FindBySlug(_ context.Context, slug string) (models.Movie, error) {
	for _, movie := range s.movies {
		if movie.Slug == slug {
			return movie, nil
		}
	}
	return models.Movie{}, repositories.ErrNotFound
}

func (s *inMemoryMovieStore) List(_ context.Context, searchTerm string) ([]models.Movie, error) {
	var movies []models.Movie
	term := strings.ToLower(searchTerm)
	for _, movie := range s.movies {
		if term == "" || strings.Contains(strings.ToLower(movie.Title), term) {
			movies = append(movies, movie)
		}
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i].Slug < movies[j].Slug })
	return movies, nil
}

func (s *inMemoryMovieStore) ListByActor(_ context.Context, actorID string) ([]models.Movie, error) {
	var movies []models.Movie
	for _, movie := range s.movies {
		for _, actor := range movie.Actors {
			if actor.ID == actorID {
				movies = append(movies, movie)
				break
			}
		}
	}
	return movies, nil
}

func (s *inMemoryMovieStore) ListByGenres(_ context.Context, genreIDs []string) ([]models.Movie, error) {
	wanted := make(map[string]bool, len(genreIDs))
	for _, id := range genreIDs {
		wanted[id] = true
	}
	var movies []models.Movie
	for _, movie := range s.movies {
		for _, genre := range movie.Genres {
			if wanted[genre.ID] {
				movies = append(movies, movie)
				break
			}
		}
	}
	return movies, nil
}

func (s *inMemoryMovieStore) ListMostPopular(_ context.Context) ([]models.Movie, error) {
	var movies []models.Movie
	for _, movie := range s.movies {
		if movie.CountOpened > 0 {
			movies = append(movies, movie)
		}
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i].CountOpened > movies[j].CountOpened })
	return movies, nil
}

func (s *inMemoryMovieStore) IncrementCountOpened(_ context.Context, slug string) (models.Movie, error) {
	for id, movie := range s.movies {
		if movie.Slug == slug {
			movie.CountOpened++
			s.movies[id] = movie
			return movie, nil
		}
	}
	return models.Movie{}, repositories.ErrNotFound
}

func (s *inMemoryMovieStore) Update(_ context.Context, movie models.Movie, genreIDs, actorIDs []string) error {
	if _, ok := s.movies[movie.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.movies[movie.ID] = movie
	return nil
}

func (s *inMemoryMovieStore) Delete(_ context.Context, id string) error {
	if _, ok := s.movies[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.movies, id)
	return nil
}

type recordingAnnouncer struct {
	mu     sync.Mutex
	movies []models.Movie
}

func (a *recordingAnnouncer) Announce(_ context.Context, movie models.Movie) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.movies = append(a.movies, movie)
	return nil
}

func (a *recordingAnnouncer) announced() []models.Movie {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Movie(nil), a.movies...)
}

func movieTestRouter(store MovieStore, announcer MovieAnnouncer, tokens TokenService) *http.ServeMux {
	return NewRouter(Dependencies{
		Movies:    store,
		Announcer: announcer,
		Tokens:    tokens,
	})
}

func TestMovieCreateRequiresAdmin(t *testing.T) {
	issuer := newTestIssuer(t)
	mux := movieTestRouter(newInMemoryMovieStore(), nil, issuer)

	body, _ := json.Marshal(movieCreateRequest{Title: "Movie", Slug: "movie", VideoURL: "/v.mp4"})
	req := authenticatedRequest(t, issuer, models.User{ID: "user-1", Email: "u@example.com"},
		http.MethodPost, "/api/movies", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Admin rights required") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestMovieCreateDefaultsAndAnnounces(t *testing.T) {
	issuer := newTestIssuer(t)
	store := newInMemoryMovieStore()
	announcer := &recordingAnnouncer{}
	mux := movieTestRouter(store, announcer, issuer)
	admin := models.User{ID: "admin-1", Email: "admin@example.com", IsAdmin: true}

	body, _ := json.Marshal(movieCreateRequest{
		Title:    "Midnight Echo",
		Slug:     "Midnight-Echo",
		VideoURL: "/uploads/midnight-echo.mp4",
	})
	req := authenticatedRequest(t, issuer, admin, http.MethodPost, "/api/movies", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp movieDTO
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Slug != "midnight-echo" {
		t.Fatalf("expected lowercased slug, got %q", resp.Slug)
	}
	if resp.Rating != models.DefaultMovieRating {
		t.Fatalf("expected default rating %v, got %v", models.DefaultMovieRating, resp.Rating)
	}

	announced := announcer.announced()
	if len(announced) != 1 || announced[0].Slug != "midnight-echo" {
		t.Fatalf("expected one announcement for the new movie, got %+v", announced)
	}
}

func TestMovieCreateDuplicateSlug(t *testing.T) {
	issuer := newTestIssuer(t)
	store := newInMemoryMovieStore()
	mux := movieTestRouter(store, nil, issuer)
	admin := models.User{ID: "admin-1", Email: "admin@example.com", IsAdmin: true}

	create := func() *httptest.ResponseRecorder {
		body, _ := json.Marshal(movieCreateRequest{Title: "Dup", Slug: "dup", VideoURL: "/v.mp4"})
		req := authenticatedRequest(t, issuer, admin, http.MethodPost, "/api/movies", body)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	if rec := create(); rec.Code != http.StatusOK {
		t.Fatalf("first create should succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := create(); rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d for duplicate slug, got %d", http.StatusConflict, rec.Code)
	}
}

func TestMovieCreateSkipsAnnouncementWhenAlreadySent(t *testing.T) {
	issuer := newTestIssuer(t)
	announcer := &recordingAnnouncer{}
	mux := movieTestRouter(newInMemoryMovieStore(), announcer, issuer)
	admin := models.User{ID: "admin-1", Email: "admin@example.com", IsAdmin: true}

	sent := true
	body, _ := json.Marshal(movieCreateRequest{
		Title:          "Quiet",
		Slug:           "quiet",
		VideoURL:       "/v.mp4",
		IsSendTelegram: &sent,
	})
	req := authenticatedRequest(t, issuer, admin, http.MethodPost, "/api/movies", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
	}
	if announced := announcer.announced(); len(announced) != 0 {
		t.Fatalf("expected no announcement for already-sent movie, got %+v", announced)
	}
}

func TestMovieBySlugPublic(t *testing.T) {
	issuer := newTestIssuer(t)
	store := newInMemoryMovieStore()
	store.movies["m-1"] = models.Movie{ID: "m-1", Title: "Paper Lanterns", Slug: "paper-lanterns", Rating: 4.5}
	mux := movieTestRouter(store, nil, issuer)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/by-slug/paper-lanterns", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp movieDTO
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "m-1" || resp.Rating != 4.5 {
		t.Fatalf("unexpected movie payload %+v", resp)
	}
}

func TestMovieBySlugNotFound(t *testing.T) {
	mux := movieTestRouter(newInMemoryMovieStore(), nil, newTestIssuer(t))

	req := httptest.NewRequest(http.MethodGet, "/api/movies/by-slug/missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Movie not found.") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestMovieUpdateCountOpened(t *testing.T) {
	store := newInMemoryMovieStore()
	store.movies["m-1"] = models.Movie{ID: "m-1", Title: "Echo", Slug: "echo"}
	mux := movieTestRouter(store, nil, newTestIssuer(t))

	body := []byte(`{"slug":"echo"}`)
	for want := 1; want <= 3; want++ {
		req := httptest.NewRequest(http.MethodPost, "/api/movies/update-count-opened", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
		}

		var resp movieDTO
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.CountOpened != want {
			t.Fatalf("expected count %d, got %d", want, resp.CountOpened)
		}
	}
}

func TestMovieByGenresRequiresIDs(t *testing.T) {
	mux := movieTestRouter(newInMemoryMovieStore(), nil, newTestIssuer(t))

	req := httptest.NewRequest(http.MethodGet, "/api/movies/by-genres", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestMovieByGenresFilters(t *testing.T) {
	store := newInMemoryMovieStore()
	store.movies["m-1"] = models.Movie{ID: "m-1", Slug: "a", Genres: []models.Genre{{ID: "g-1"}}}
	store.movies["m-2"] = models.Movie{ID: "m-2", Slug: "b", Genres: []models.Genre{{ID: "g-2"}}}
	mux := movieTestRouter(store, nil, newTestIssuer(t))

	req := httptest.NewRequest(http.MethodGet, "/api/movies/by-genres?genreIds=g-1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp []movieDTO
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].ID != "m-1" {
		t.Fatalf("unexpected filter result %+v", resp)
	}
}

func TestMovieDeleteAsAdmin(t *testing.T) {
	issuer := newTestIssuer(t)
	store := newInMemoryMovieStore()
	store.movies["m-1"] = models.Movie{ID: "m-1", Title: "Gone", Slug: "gone"}
	mux := movieTestRouter(store, nil, issuer)
	admin := models.User{ID: "admin-1", Email: "admin@example.com", IsAdmin: true}

	req := authenticatedRequest(t, issuer, admin, http.MethodDelete, "/api/movies/m-1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if _, err := store.FindByID(context.Background(), "m-1"); err == nil {
		t.Fatal("expected movie to be deleted")
	}
}

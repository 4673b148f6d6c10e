package handlers

import "net/http"

// Dependencies bundles everything the HTTP layer needs. Optional fields
// (Announcer, Files, AuthLimiter) may be nil; the affected endpoints degrade
// instead of panicking.
type Dependencies struct {
	Users       UserStore
	Movies      MovieStore
	Actors      ActorStore
	Genres      GenreStore
	Ratings     RatingStore
	Favorites   FavoriteStore
	Tokens      TokenService
	Files       FileStorage
	Announcer   MovieAnnouncer
	AuthLimiter RateLimiter
}

// NewRouter wires every endpoint onto a fresh mux. Method and path matching
// is delegated to the standard library pattern router.
func NewRouter(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()

	authH := AuthHandler{Users: deps.Users, Tokens: deps.Tokens, Limiter: deps.AuthLimiter}
	movieH := MovieHandler{Movies: deps.Movies, Announcer: deps.Announcer}
	actorH := ActorHandler{Actors: deps.Actors}
	genreH := GenreHandler{Genres: deps.Genres}
	ratingH := RatingHandler{Ratings: deps.Ratings}
	userH := UserHandler{Users: deps.Users, Favorites: deps.Favorites}
	fileH := FileHandler{Storage: deps.Files}

	mux.HandleFunc("GET /healthz", Health)

	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	mux.HandleFunc("POST /api/auth/login/access-token", authH.Refresh)

	mux.HandleFunc("GET /api/movies", movieH.List)
	mux.HandleFunc("GET /api/movies/by-slug/{slug}", movieH.BySlug)
	mux.HandleFunc("GET /api/movies/by-actor/{actorId}", movieH.ByActor)
	mux.HandleFunc("GET /api/movies/by-genres", movieH.ByGenres)
	mux.HandleFunc("GET /api/movies/most-popular", movieH.MostPopular)
	mux.HandleFunc("POST /api/movies/update-count-opened", movieH.UpdateCountOpened)
	mux.HandleFunc("POST /api/movies", requireAdmin(deps.Tokens, movieH.Create))
	mux.HandleFunc("GET /api/movies/{id}", requireAdmin(deps.Tokens, movieH.GetByID))
	mux.HandleFunc("PUT /api/movies/{id}", requireAdmin(deps.Tokens, movieH.Update))
	mux.HandleFunc("DELETE /api/movies/{id}", requireAdmin(deps.Tokens, movieH.Delete))

	mux.HandleFunc("GET /api/actors", actorH.List)
	mux.HandleFunc("GET /api/actors/by-slug/{slug}", actorH.BySlug)
	mux.HandleFunc("POST /api/actors", requireAdmin(deps.Tokens, actorH.Create))
	mux.HandleFunc("GET /api/actors/{id}", requireAdmin(deps.Tokens, actorH.GetByID))
	mux.HandleFunc("PUT /api/actors/{id}", requireAdmin(deps.Tokens, actorH.Update))
	mux.HandleFunc("DELETE /api/actors/{id}", requireAdmin(deps.Tokens, actorH.Delete))

	mux.HandleFunc("GET /api/genres", genreH.List)
	mux.HandleFunc("GET /api/genres/by-slug/{slug}", genreH.BySlug)
	mux.HandleFunc("POST /api/genres", requireAdmin(deps.Tokens, genreH.Create))
	mux.HandleFunc("GET /api/genres/{id}", requireAdmin(deps.Tokens, genreH.GetByID))
	mux.HandleFunc("PUT /api/genres/{id}", requireAdmin(deps.Tokens, genreH.Update))
	mux.HandleFunc("DELETE /api/genres/{id}", requireAdmin(deps.Tokens, genreH.Delete))

	mux.HandleFunc("POST /api/ratings/set-rating", requireUser(deps.Tokens, ratingH.SetRating))
	mux.HandleFunc("GET /api/ratings/{movieId}", requireUser(deps.Tokens, ratingH.GetByMovie))

	mux.HandleFunc("GET /api/users/profile", requireUser(deps.Tokens, userH.Profile))
	mux.HandleFunc("PUT /api/users/profile", requireUser(deps.Tokens, userH.UpdateProfile))
	mux.HandleFunc("GET /api/users/profile/favorites", requireUser(deps.Tokens, userH.ListFavorites))
	mux.HandleFunc("POST /api/users/profile/favorites", requireUser(deps.Tokens, userH.ToggleFavorite))
	mux.HandleFunc("GET /api/users", requireAdmin(deps.Tokens, userH.List))
	mux.HandleFunc("GET /api/users/count", requireAdmin(deps.Tokens, userH.Count))
	mux.HandleFunc("GET /api/users/{id}", requireAdmin(deps.Tokens, userH.GetByID))
	mux.HandleFunc("PUT /api/users/{id}", requireAdmin(deps.Tokens, userH.Update))
	mux.HandleFunc("DELETE /api/users/{id}", requireAdmin(deps.Tokens, userH.Delete))

	mux.HandleFunc("POST /api/files", requireAdmin(deps.Tokens, fileH.Upload))

	return mux
}

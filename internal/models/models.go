package models

import "time"

// User represents an account within the StreamCatalog platform. The refresh
// token fields track the single currently valid refresh credential; rotation
// overwrites them so older tokens stop working.
type User struct {
	ID               string
	Email            string
	PasswordHash     []byte
	PasswordSalt     []byte
	IsAdmin          bool
	RefreshToken     string
	RefreshCreatedAt time.Time
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Role returns the role claim value embedded in issued tokens.
func (u User) Role() string {
	if u.IsAdmin {
		return "Admin"
	}
	return "User"
}

// DefaultMovieRating is assigned to freshly created movies until real user
// ratings arrive.
const DefaultMovieRating = 4.0

// Movie is a catalog entry. Rating is the aggregate mean of all non-null
// per-user ratings; CountOpened counts playback opens.
type Movie struct {
	ID          string
	Title       string
	Slug        string
	Poster      string
	BigPoster   string
	VideoURL    string
	Rating      float64
	CountOpened int
	Announced   bool
	Parameters  MovieParameters
	Genres      []Genre
	Actors      []Actor
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MovieParameters holds the 1:1 technical details for a movie.
type MovieParameters struct {
	Year     int
	Duration int
	Country  string
}

// Actor is a cast member referenced by movies.
type Actor struct {
	ID        string
	Name      string
	Slug      string
	Photo     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Genre classifies movies.
type Genre struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Icon        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserMovie links a user to a movie. A nil Rating means the user favorited
// the movie without rating it; at most one edge exists per (user, movie).
type UserMovie struct {
	UserID    string
	MovieID   string
	Rating    *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenPair groups the bearer credentials issued to authenticated users.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

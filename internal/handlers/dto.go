package handlers

import "github.com/streamcatalog/backend/internal/models"

type userDTO struct {
	ID      string `json:"_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

type parametersDTO struct {
	Year     int    `json:"year"`
	Duration int    `json:"duration"`
	Country  string `json:"country"`
}

type genreDTO struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type actorDTO struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Photo string `json:"photo"`
}

type movieDTO struct {
	ID             string        `json:"_id"`
	Poster         string        `json:"poster"`
	BigPoster      string        `json:"bigPoster"`
	Title          string        `json:"title"`
	VideoURL       string        `json:"videoUrl"`
	Slug           string        `json:"slug"`
	Parameters     parametersDTO `json:"parameters"`
	Genres         []genreDTO    `json:"genres"`
	Actors         []actorDTO    `json:"actors"`
	Rating         float64       `json:"rating"`
	CountOpened    int           `json:"countOpened"`
	IsSendTelegram bool          `json:"isSendTelegram"`
}

func toUserDTO(user models.User) userDTO {
	return userDTO{ID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}
}

func toGenreDTO(genre models.Genre) genreDTO {
	return genreDTO{
		ID:          genre.ID,
		Name:        genre.Name,
		Slug:        genre.Slug,
		Description: genre.Description,
		Icon:        genre.Icon,
	}
}

func toActorDTO(actor models.Actor) actorDTO {
	return actorDTO{ID: actor.ID, Name: actor.Name, Slug: actor.Slug, Photo: actor.Photo}
}

func toMovieDTO(movie models.Movie) movieDTO {
	dto := movieDTO{
		ID:        movie.ID,
		Poster:    movie.Poster,
		BigPoster: movie.BigPoster,
		Title:     movie.Title,
		VideoURL:  movie.VideoURL,
		Slug:      movie.Slug,
		Parameters: parametersDTO{
			Year:     movie.Parameters.Year,
			Duration: movie.Parameters.Duration,
			Country:  movie.Parameters.Country,
		},
		Genres:         make([]genreDTO, 0, len(movie.Genres)),
		Actors:         make([]actorDTO, 0, len(movie.Actors)),
		Rating:         movie.Rating,
		CountOpened:    movie.CountOpened,
		IsSendTelegram: movie.Announced,
	}
	for _, genre := range movie.Genres {
		dto.Genres = append(dto.Genres, toGenreDTO(genre))
	}
	for _, actor := range movie.Actors {
		dto.Actors = append(dto.Actors, toActorDTO(actor))
	}
	return dto
}

func toMovieDTOs(movies []models.Movie) []movieDTO {
	dtos := make([]movieDTO, 0, len(movies))
	for _, movie := range movies {
		dtos = append(dtos, toMovieDTO(movie))
	}
	return dtos
}

func toUserDTOs(users []models.User) []userDTO {
	dtos := make([]userDTO, 0, len(users))
	for _, user := range users {
		dtos = append(dtos, toUserDTO(user))
	}
	return dtos
}

func toGenreDTOs(genres []models.Genre) []genreDTO {
	dtos := make([]genreDTO, 0, len(genres))
	for _, genre := range genres {
		dtos = append(dtos, toGenreDTO(genre))
	}
	return dtos
}

func toActorDTOs(actors []models.Actor) []actorDTO {
	dtos := make([]actorDTO, 0, len(actors))
	for _, actor := range actors {
		dtos = append(dtos, toActorDTO(actor))
	}
	return dtos
}

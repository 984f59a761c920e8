package models

import (
	"time"
)

// MovieSource identifies where a movie record was loaded from. Local
// movies come out of the document store, external ones from the TMDB
// catalog API. Both are normalized into the same Movie shape.
type MovieSource string

const (
	SourceLocal MovieSource = "local"
	SourceTMDB  MovieSource = "tmdb"
)

type Movie struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Genres      []string    `json:"genres"`
	Rating      float64     `json:"rating"` // 0.0 - 10.0
	Synopsis    string      `json:"synopsis"`
	Duration    int         `json:"duration"` // runtime in minutes
	ReleaseDate string      `json:"release_date"`
	PosterPath  string      `json:"poster_path"`
	Status      string      `json:"status"` // now_showing, coming_soon
	Source      MovieSource `json:"source"`
	CreatedAt   time.Time   `json:"created_at"`
}

type Theatre struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Amenities []string  `json:"amenities"`
	CreatedAt time.Time `json:"created_at"`
}

type Showtime struct {
	ID        string    `json:"id"`
	MovieID   string    `json:"movie_id"`
	TheatreID string    `json:"theatre_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Time      string    `json:"time"` // e.g. "02:00 PM"
	Format    string    `json:"format"` // 2D, 3D, IMAX
	CreatedAt time.Time `json:"created_at"`
}

package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinebook/clients/tmdb"
	"cinebook/models"
	"cinebook/store"
)

func TestMovieFromTMDB_Normalization(t *testing.T) {
	raw := &tmdb.Movie{
		ID:          27205,
		Title:       "Inception",
		Overview:    "A thief who steals corporate secrets.",
		VoteAverage: 8.4,
		Runtime:     148,
		ReleaseDate: "2010-07-16",
		PosterPath:  "/inception.jpg",
		Genres: []tmdb.Genre{
			{ID: 28, Name: "Action"},
			{ID: 878, Name: "Science Fiction"},
		},
	}

	movie := movieFromTMDB(raw)

	assert.Equal(t, "27205", movie.ID)
	assert.Equal(t, "Inception", movie.Title)
	assert.Equal(t, []string{"Action", "Science Fiction"}, movie.Genres)
	assert.Equal(t, 8.4, movie.Rating)
	assert.Equal(t, 148, movie.Duration)
	assert.Equal(t, models.SourceTMDB, movie.Source)
	assert.Equal(t, "now_showing", movie.Status)
}

func TestNowPlayingExternal_NormalizesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/now_playing", r.URL.Path)
		w.Write([]byte(`{"page": 1, "results": [
			{"id": 1, "title": "First", "release_date": "2010-07-16"},
			{"id": 2, "title": "Second", "release_date": "2010-07-16"}
		]}`))
	}))
	t.Cleanup(srv.Close)

	catalog := &CatalogService{TMDB: tmdb.New(srv.URL, "test-key", 2*time.Second)}

	movies, err := catalog.NowPlayingExternal(context.Background())

	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "1", movies[0].ID)
	assert.Equal(t, "First", movies[0].Title)
	assert.Equal(t, models.SourceTMDB, movies[0].Source)
}

func TestNowPlayingExternal_RequiresConfiguredUpstream(t *testing.T) {
	catalog := &CatalogService{TMDB: tmdb.New("http://unused", "", time.Second)}

	_, err := catalog.NowPlayingExternal(context.Background())

	assert.Error(t, err)
}

func TestStatusForRelease(t *testing.T) {
	past := time.Now().AddDate(0, -1, 0).Format("2006-01-02")
	future := time.Now().AddDate(0, 1, 0).Format("2006-01-02")

	assert.Equal(t, "now_showing", statusForRelease(past))
	assert.Equal(t, "coming_soon", statusForRelease(future))
	assert.Equal(t, "now_showing", statusForRelease("not-a-date"))
}

func TestMovieFromRecord_SourceIsLocal(t *testing.T) {
	rec := &store.Record{
		ID:         "mov_1",
		Collection: "movies",
		Fields: map[string]any{
			"title":        "Local Hero",
			"genres":       []any{"Drama"},
			"rating":       7.5,
			"synopsis":     "A small town story.",
			"duration":     111,
			"release_date": "1983-02-17",
			"status":       "now_showing",
		},
	}

	movie := movieFromRecord(rec)

	assert.Equal(t, "mov_1", movie.ID)
	assert.Equal(t, models.SourceLocal, movie.Source)
	assert.Equal(t, []string{"Drama"}, movie.Genres)
	assert.Equal(t, 111, movie.Duration)
}

func TestHasGenre_CaseInsensitive(t *testing.T) {
	genres := []string{"Action", "Sci-Fi"}

	assert.True(t, hasGenre(genres, "action"))
	assert.True(t, hasGenre(genres, "SCI-FI"))
	assert.False(t, hasGenre(genres, "Comedy"))
	assert.False(t, hasGenre(nil, "Action"))
}

func TestShowtimeFromRecord(t *testing.T) {
	rec := &store.Record{
		ID:         "show_1",
		Collection: "showtimes",
		Fields: map[string]any{
			"movie":   "mov_1",
			"theatre": "th_1",
			"date":    "2026-09-05",
			"time":    "02:00 PM",
			"format":  "IMAX",
		},
	}

	st := showtimeFromRecord(rec)

	assert.Equal(t, "mov_1", st.MovieID)
	assert.Equal(t, "th_1", st.TheatreID)
	assert.Equal(t, "02:00 PM", st.Time)
	assert.Equal(t, "IMAX", st.Format)
}

package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinebook/internal/status"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-key", 2*time.Second)
}

func TestClient_GetMovie(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/27205", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 27205,
			"title": "Inception",
			"overview": "A thief who enters dream worlds...",
			"vote_average": 8.8,
			"runtime": 148,
			"release_date": "2010-07-16",
			"poster_path": "/9gk7adHYeDvHkCSEqAvQNLV5Uge.jpg",
			"genres": [{"id": 878, "name": "Science Fiction"}, {"id": 53, "name": "Thriller"}]
		}`))
	})

	movie, err := client.GetMovie(context.Background(), "27205")
	require.NoError(t, err)

	assert.Equal(t, 27205, movie.ID)
	assert.Equal(t, "Inception", movie.Title)
	assert.Equal(t, 8.8, movie.VoteAverage)
	assert.Equal(t, 148, movie.Runtime)
	assert.Len(t, movie.Genres, 2)
	assert.Equal(t, "Science Fiction", movie.Genres[0].Name)
}

func TestClient_GetMovie_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetMovie(context.Background(), "999999")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestClient_GetMovie_NonNumericID(t *testing.T) {
	client := New("http://unused", "test-key", time.Second)

	_, err := client.GetMovie(context.Background(), "movie_1")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestClient_NowPlaying(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/now_playing", r.URL.Path)
		w.Write([]byte(`{"page": 1, "results": [{"id": 1, "title": "First"}, {"id": 2, "title": "Second"}]}`))
	})

	movies, err := client.NowPlaying(context.Background())
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "First", movies[0].Title)
}

func TestClient_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status_message": "boom"}`))
	})

	_, err := client.NowPlaying(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, status.ErrNotFound)
}

func TestClient_Enabled(t *testing.T) {
	assert.True(t, New("http://x", "key", time.Second).Enabled())
	assert.False(t, New("http://x", "", time.Second).Enabled())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}

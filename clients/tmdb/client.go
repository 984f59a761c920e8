package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cinebook/internal/status"
	"cinebook/utils"
)

// Client is a read-only client for the TMDB catalog API. All calls go
// through a circuit breaker so a flapping upstream cannot stall movie
// lookups; callers fall back to local data when the breaker is open.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *utils.CircuitBreaker
}

// Movie is the raw TMDB movie payload. Field names follow the TMDB wire
// format; normalization into the canonical movie shape happens in the
// catalog service.
type Movie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	VoteAverage float64 `json:"vote_average"`
	Runtime     int     `json:"runtime"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	Genres      []Genre `json:"genres"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type listResponse struct {
	Page    int     `json:"page"`
	Results []Movie `json:"results"`
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		breaker: utils.NewCircuitBreaker("tmdb"),
	}
}

// Enabled reports whether the client is configured with an API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// GetMovie fetches a single movie by its TMDB id.
func (c *Client) GetMovie(ctx context.Context, id string) (*Movie, error) {
	if _, err := strconv.Atoi(id); err != nil {
		// TMDB ids are numeric; anything else cannot exist upstream.
		return nil, status.ErrNotFound
	}

	result, err := c.breaker.Execute(ctx, func() (any, error) {
		var movie Movie
		if err := c.get(ctx, "/movie/"+id, nil, &movie); err != nil {
			return nil, err
		}
		return &movie, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Movie), nil
}

// NowPlaying lists movies currently in theatres according to TMDB.
func (c *Client) NowPlaying(ctx context.Context) ([]Movie, error) {
	result, err := c.breaker.Execute(ctx, func() (any, error) {
		var resp listResponse
		if err := c.get(ctx, "/movie/now_playing", nil, &resp); err != nil {
			return nil, err
		}
		return resp.Results, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Movie), nil
}

// SearchMovies runs a text search against the TMDB catalog.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]Movie, error) {
	result, err := c.breaker.Execute(ctx, func() (any, error) {
		var resp listResponse
		params := url.Values{"query": []string{query}}
		if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
			return nil, err
		}
		return resp.Results, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Movie), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return status.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tmdb: %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tmdb: decode %s: %w", path, err)
	}
	return nil
}

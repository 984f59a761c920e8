package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pocketbase/dbx"

	"cinebook/clients/tmdb"
	"cinebook/internal/status"
	"cinebook/models"
	"cinebook/store"
)

// CatalogMetrics receives lookup outcomes for monitoring. A nil metrics
// sink disables tracking.
type CatalogMetrics interface {
	TrackCatalogLookup(source, outcome string)
}

// CatalogService serves movies, theatres and showtimes. Local records
// live in the document store; when a movie id is unknown locally the
// service falls back to the TMDB catalog and normalizes the external
// payload into the same movie shape, tagged with its source.
type CatalogService struct {
	Store   *store.Client
	TMDB    *tmdb.Client
	Metrics CatalogMetrics
}

func NewCatalogService(st *store.Client, tmdbClient *tmdb.Client, metrics CatalogMetrics) *CatalogService {
	return &CatalogService{
		Store:   st,
		TMDB:    tmdbClient,
		Metrics: metrics,
	}
}

// ShowtimeDetail bundles a showtime with its movie and theatre, the
// shape booking snapshots are built from.
type ShowtimeDetail struct {
	Showtime models.Showtime `json:"showtime"`
	Movie    models.Movie    `json:"movie"`
	Theatre  models.Theatre  `json:"theatre"`
}

// ListMovies returns movies ordered newest first. An empty genre or
// statusFilter matches everything; genre matching is case-insensitive.
func (c *CatalogService) ListMovies(ctx context.Context, genre, statusFilter string) ([]models.Movie, error) {
	var filter *store.Filter
	if statusFilter != "" {
		filter = &store.Filter{
			Expr:   "status = {:status}",
			Params: dbx.Params{"status": statusFilter},
		}
	}

	records, err := c.Store.Query("movies", filter, "-created", 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: list movies: %w", err)
	}

	movies := make([]models.Movie, 0, len(records))
	for _, rec := range records {
		movie := movieFromRecord(rec)
		if genre != "" && !hasGenre(movie.Genres, genre) {
			continue
		}
		movies = append(movies, movie)
	}
	return movies, nil
}

// NowPlayingExternal returns the TMDB now-playing feed normalized into
// the catalog's movie shape. Errors when TMDB is not configured.
func (c *CatalogService) NowPlayingExternal(ctx context.Context) ([]models.Movie, error) {
	if !c.TMDB.Enabled() {
		return nil, fmt.Errorf("catalog: tmdb is not configured")
	}

	external, err := c.TMDB.NowPlaying(ctx)
	if err != nil {
		c.track(string(models.SourceTMDB), "error")
		return nil, fmt.Errorf("catalog: now playing: %w", err)
	}

	c.track(string(models.SourceTMDB), "hit")
	movies := make([]models.Movie, len(external))
	for i := range external {
		movies[i] = movieFromTMDB(&external[i])
	}
	return movies, nil
}

// GetMovie resolves a movie by id, local store first, then TMDB.
func (c *CatalogService) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	rec, err := c.Store.Get("movies", id)
	if err == nil {
		c.track(string(models.SourceLocal), "hit")
		movie := movieFromRecord(rec)
		return &movie, nil
	}
	if !errors.Is(err, status.ErrNotFound) {
		c.track(string(models.SourceLocal), "error")
		return nil, err
	}

	if !c.TMDB.Enabled() {
		c.track(string(models.SourceLocal), "miss")
		return nil, status.ErrNotFound
	}

	external, err := c.TMDB.GetMovie(ctx, id)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			c.track(string(models.SourceTMDB), "miss")
			return nil, status.ErrNotFound
		}
		c.track(string(models.SourceTMDB), "error")
		return nil, fmt.Errorf("catalog: tmdb lookup %s: %w", id, err)
	}

	c.track(string(models.SourceTMDB), "hit")
	movie := movieFromTMDB(external)
	return &movie, nil
}

// SearchMovies matches local titles and, when configured, merges TMDB
// search results. Local matches come first; external duplicates of a
// local title are skipped.
func (c *CatalogService) SearchMovies(ctx context.Context, query string) ([]models.Movie, error) {
	records, err := c.Store.Query("movies", &store.Filter{
		Expr:   "title LIKE {:q}",
		Params: dbx.Params{"q": "%" + query + "%"},
	}, "title", 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: search movies: %w", err)
	}

	movies := make([]models.Movie, 0, len(records))
	seen := make(map[string]bool)
	for _, rec := range records {
		movie := movieFromRecord(rec)
		movies = append(movies, movie)
		seen[strings.ToLower(movie.Title)] = true
	}

	if c.TMDB.Enabled() {
		external, err := c.TMDB.SearchMovies(ctx, query)
		if err != nil {
			// External search is best-effort; local results still stand.
			c.track(string(models.SourceTMDB), "error")
		} else {
			for i := range external {
				movie := movieFromTMDB(&external[i])
				if seen[strings.ToLower(movie.Title)] {
					continue
				}
				movies = append(movies, movie)
			}
		}
	}
	return movies, nil
}

// ImportMovie copies a TMDB movie into the local catalog so showtimes
// can reference it. Re-importing an already imported title returns the
// existing record.
func (c *CatalogService) ImportMovie(ctx context.Context, tmdbID string) (*models.Movie, error) {
	if !c.TMDB.Enabled() {
		return nil, fmt.Errorf("catalog: tmdb is not configured")
	}

	external, err := c.TMDB.GetMovie(ctx, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("catalog: import %s: %w", tmdbID, err)
	}

	existing, err := c.Store.Query("movies", &store.Filter{
		Expr:   "tmdb_id = {:tmdb}",
		Params: dbx.Params{"tmdb": external.ID},
	}, "", 1)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		movie := movieFromRecord(existing[0])
		return &movie, nil
	}

	normalized := movieFromTMDB(external)
	id, err := c.Store.Create("movies", map[string]any{
		"title":        normalized.Title,
		"genres":       normalized.Genres,
		"rating":       normalized.Rating,
		"synopsis":     normalized.Synopsis,
		"duration":     normalized.Duration,
		"release_date": normalized.ReleaseDate,
		"poster_path":  normalized.PosterPath,
		"status":       normalized.Status,
		"tmdb_id":      external.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: store imported movie: %w", err)
	}

	normalized.ID = id
	normalized.Source = models.SourceLocal
	return &normalized, nil
}

// ListTheatres returns all theatres ordered by name.
func (c *CatalogService) ListTheatres(ctx context.Context) ([]models.Theatre, error) {
	records, err := c.Store.Query("theatres", nil, "name", 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: list theatres: %w", err)
	}

	theatres := make([]models.Theatre, len(records))
	for i, rec := range records {
		theatres[i] = theatreFromRecord(rec)
	}
	return theatres, nil
}

// GetTheatre fetches a theatre by id.
func (c *CatalogService) GetTheatre(ctx context.Context, id string) (*models.Theatre, error) {
	rec, err := c.Store.Get("theatres", id)
	if err != nil {
		return nil, err
	}
	theatre := theatreFromRecord(rec)
	return &theatre, nil
}

// ListShowtimes returns showtimes for a movie, optionally narrowed to a
// date. Showtimes whose movie or theatre no longer exists are skipped.
func (c *CatalogService) ListShowtimes(ctx context.Context, movieID, date string) ([]models.Showtime, error) {
	expr := "movie = {:movie}"
	params := dbx.Params{"movie": movieID}
	if date != "" {
		expr += " AND date = {:date}"
		params["date"] = date
	}

	records, err := c.Store.Query("showtimes", &store.Filter{Expr: expr, Params: params}, "date,time", 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: list showtimes: %w", err)
	}

	showtimes := make([]models.Showtime, 0, len(records))
	for _, rec := range records {
		st := showtimeFromRecord(rec)
		if !c.refsResolve(st) {
			continue
		}
		showtimes = append(showtimes, st)
	}
	return showtimes, nil
}

// GetShowtimeDetail resolves a showtime together with its movie and
// theatre. A dangling movie or theatre reference surfaces as not found.
func (c *CatalogService) GetShowtimeDetail(ctx context.Context, showtimeID string) (*ShowtimeDetail, error) {
	rec, err := c.Store.Get("showtimes", showtimeID)
	if err != nil {
		return nil, err
	}
	st := showtimeFromRecord(rec)

	movie, err := c.GetMovie(ctx, st.MovieID)
	if err != nil {
		return nil, fmt.Errorf("catalog: showtime %s movie: %w", showtimeID, err)
	}
	theatre, err := c.GetTheatre(ctx, st.TheatreID)
	if err != nil {
		return nil, fmt.Errorf("catalog: showtime %s theatre: %w", showtimeID, err)
	}

	return &ShowtimeDetail{
		Showtime: st,
		Movie:    *movie,
		Theatre:  *theatre,
	}, nil
}

func (c *CatalogService) refsResolve(st models.Showtime) bool {
	if _, err := c.Store.Get("movies", st.MovieID); err != nil {
		return false
	}
	if _, err := c.Store.Get("theatres", st.TheatreID); err != nil {
		return false
	}
	return true
}

func (c *CatalogService) track(source, outcome string) {
	if c.Metrics != nil {
		c.Metrics.TrackCatalogLookup(source, outcome)
	}
}

func hasGenre(genres []string, want string) bool {
	for _, g := range genres {
		if strings.EqualFold(g, want) {
			return true
		}
	}
	return false
}

func movieFromRecord(rec *store.Record) models.Movie {
	return models.Movie{
		ID:          rec.ID,
		Title:       rec.GetString("title"),
		Genres:      rec.GetStringSlice("genres"),
		Rating:      rec.GetFloat("rating"),
		Synopsis:    rec.GetString("synopsis"),
		Duration:    rec.GetInt("duration"),
		ReleaseDate: rec.GetString("release_date"),
		PosterPath:  rec.GetString("poster_path"),
		Status:      rec.GetString("status"),
		Source:      models.SourceLocal,
		CreatedAt:   rec.Created,
	}
}

func movieFromTMDB(m *tmdb.Movie) models.Movie {
	genres := make([]string, len(m.Genres))
	for i, g := range m.Genres {
		genres[i] = g.Name
	}

	return models.Movie{
		ID:          strconv.Itoa(m.ID),
		Title:       m.Title,
		Genres:      genres,
		Rating:      m.VoteAverage,
		Synopsis:    m.Overview,
		Duration:    m.Runtime,
		ReleaseDate: m.ReleaseDate,
		PosterPath:  m.PosterPath,
		Status:      statusForRelease(m.ReleaseDate),
		Source:      models.SourceTMDB,
	}
}

func statusForRelease(releaseDate string) string {
	released, err := time.Parse("2006-01-02", releaseDate)
	if err != nil {
		return "now_showing"
	}
	if released.After(time.Now()) {
		return "coming_soon"
	}
	return "now_showing"
}

func theatreFromRecord(rec *store.Record) models.Theatre {
	return models.Theatre{
		ID:        rec.ID,
		Name:      rec.GetString("name"),
		Location:  rec.GetString("location"),
		Amenities: rec.GetStringSlice("amenities"),
		CreatedAt: rec.Created,
	}
}

func showtimeFromRecord(rec *store.Record) models.Showtime {
	return models.Showtime{
		ID:        rec.ID,
		MovieID:   rec.GetString("movie"),
		TheatreID: rec.GetString("theatre"),
		Date:      rec.GetString("date"),
		Time:      rec.GetString("time"),
		Format:    rec.GetString("format"),
		CreatedAt: rec.Created,
	}
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"cinebook/internal/status"
	"cinebook/services"
)

type CatalogHandler struct {
	app     *pocketbase.PocketBase
	catalog *services.CatalogService
}

func NewCatalogHandler(app *pocketbase.PocketBase, catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		app:     app,
		catalog: catalog,
	}
}

// ListMovies returns the catalog, optionally filtered by ?genre= and
// ?status= (now_showing, coming_soon). ?source=tmdb serves the upstream
// now-playing feed instead of the local catalog.
func (h *CatalogHandler) ListMovies(e *core.RequestEvent) error {
	if e.Request.URL.Query().Get("source") == "tmdb" {
		movies, err := h.catalog.NowPlayingExternal(e.Request.Context())
		if err != nil {
			slog.Error("now playing failed", "error", err)
			return apis.NewInternalServerError("Failed to load now playing movies", nil)
		}
		return e.JSON(http.StatusOK, map[string]any{"movies": movies})
	}

	genre := e.Request.URL.Query().Get("genre")
	statusFilter := e.Request.URL.Query().Get("status")

	movies, err := h.catalog.ListMovies(e.Request.Context(), genre, statusFilter)
	if err != nil {
		slog.Error("list movies failed", "error", err)
		return apis.NewInternalServerError("Failed to load movies", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{"movies": movies})
}

// GetMovie resolves a movie, falling back to the external catalog.
func (h *CatalogHandler) GetMovie(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Movie ID required", nil)
	}

	movie, err := h.catalog.GetMovie(e.Request.Context(), id)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return apis.NewNotFoundError("Movie not found", nil)
		}
		slog.Error("get movie failed", "movie", id, "error", err)
		return apis.NewInternalServerError("Failed to load movie", nil)
	}

	return e.JSON(http.StatusOK, movie)
}

// SearchMovies matches titles locally and upstream.
func (h *CatalogHandler) SearchMovies(e *core.RequestEvent) error {
	query := e.Request.URL.Query().Get("q")
	if query == "" {
		return apis.NewBadRequestError("Search query required", nil)
	}

	movies, err := h.catalog.SearchMovies(e.Request.Context(), query)
	if err != nil {
		slog.Error("search movies failed", "query", query, "error", err)
		return apis.NewInternalServerError("Search failed", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{"movies": movies})
}

// ListTheatres returns all theatres.
func (h *CatalogHandler) ListTheatres(e *core.RequestEvent) error {
	theatres, err := h.catalog.ListTheatres(e.Request.Context())
	if err != nil {
		slog.Error("list theatres failed", "error", err)
		return apis.NewInternalServerError("Failed to load theatres", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{"theatres": theatres})
}

// ListShowtimes returns showtimes for ?movie=, optionally narrowed to
// ?date=YYYY-MM-DD.
func (h *CatalogHandler) ListShowtimes(e *core.RequestEvent) error {
	movieID := e.Request.URL.Query().Get("movie")
	if movieID == "" {
		return apis.NewBadRequestError("Movie ID required", nil)
	}
	date := e.Request.URL.Query().Get("date")

	showtimes, err := h.catalog.ListShowtimes(e.Request.Context(), movieID, date)
	if err != nil {
		slog.Error("list showtimes failed", "movie", movieID, "error", err)
		return apis.NewInternalServerError("Failed to load showtimes", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{"showtimes": showtimes})
}

// GetShowtime returns a showtime with its movie and theatre resolved.
func (h *CatalogHandler) GetShowtime(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Showtime ID required", nil)
	}

	detail, err := h.catalog.GetShowtimeDetail(e.Request.Context(), id)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return apis.NewNotFoundError("Showtime not found", nil)
		}
		slog.Error("get showtime failed", "showtime", id, "error", err)
		return apis.NewInternalServerError("Failed to load showtime", nil)
	}

	return e.JSON(http.StatusOK, detail)
}

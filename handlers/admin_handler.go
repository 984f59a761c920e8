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
	"cinebook/store"
)

// AdminHandler exposes the catalog management surface. All routes are
// gated behind RequireRole(models.RoleAdmin).
type AdminHandler struct {
	app      *pocketbase.PocketBase
	store    *store.Client
	catalog  *services.CatalogService
	identity *services.IdentityService
}

func NewAdminHandler(app *pocketbase.PocketBase, st *store.Client, catalog *services.CatalogService, identity *services.IdentityService) *AdminHandler {
	return &AdminHandler{
		app:      app,
		store:    st,
		catalog:  catalog,
		identity: identity,
	}
}

type movieRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Genres      []string `json:"genres" validate:"max=10"`
	Rating      float64  `json:"rating" validate:"min=0,max=10"`
	Synopsis    string   `json:"synopsis"`
	Duration    int      `json:"duration" validate:"min=0,max=600"`
	ReleaseDate string   `json:"release_date"`
	PosterPath  string   `json:"poster_path"`
	Status      string   `json:"status" validate:"required,oneof=now_showing coming_soon"`
}

type showtimeRequest struct {
	MovieID   string `json:"movie_id" validate:"required"`
	TheatreID string `json:"theatre_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required"`
	Format    string `json:"format" validate:"required,oneof=2D 3D IMAX"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type importRequest struct {
	TMDBID string `json:"tmdb_id" validate:"required,numeric"`
}

// CreateMovie adds a movie to the local catalog.
func (h *AdminHandler) CreateMovie(e *core.RequestEvent) error {
	var req movieRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validate.Struct(&req); err != nil {
		return apis.NewBadRequestError("Invalid movie", err)
	}

	id, err := h.store.Create("movies", map[string]any{
		"title":        req.Title,
		"genres":       req.Genres,
		"rating":       req.Rating,
		"synopsis":     req.Synopsis,
		"duration":     req.Duration,
		"release_date": req.ReleaseDate,
		"poster_path":  req.PosterPath,
		"status":       req.Status,
	})
	if err != nil {
		slog.Error("create movie failed", "error", err)
		return apis.NewInternalServerError("Failed to create movie", nil)
	}

	slog.Info("movie created", "movie", id, "by", e.Auth.Id)
	return e.JSON(http.StatusOK, map[string]any{"id": id})
}

// UpdateMovie applies a partial update.
func (h *AdminHandler) UpdateMovie(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")

	var fields map[string]any
	if err := e.BindBody(&fields); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.store.Update("movies", id, fields); err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return apis.NewNotFoundError("Movie not found", nil)
		}
		slog.Error("update movie failed", "movie", id, "error", err)
		return apis.NewInternalServerError("Failed to update movie", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{"id": id})
}

// DeleteMovie removes a movie. Its showtimes become dangling and are
// filtered out of listings.
func (h *AdminHandler) DeleteMovie(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")

	if err := h.store.Delete("movies", id); err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return apis.NewNotFoundError("Movie not found", nil)
		}
		slog.Error("delete movie failed", "movie", id, "error", err)
		return apis.NewInternalServerError("Failed to delete movie", nil)
	}

	slog.Info("movie deleted", "movie", id, "by", e.Auth.Id)
	return e.JSON(http.StatusOK, map[string]any{"deleted": id})
}

// ImportMovie pulls a movie from the external catalog into the store.
func (h *AdminHandler) ImportMovie(e *core.RequestEvent) error {
	var req importRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validate.Struct(&req); err != nil {
		return apis.NewBadRequestError("Invalid TMDB id", err)
	}

	movie, err := h.catalog.ImportMovie(e.Request.Context(), req.TMDBID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return apis.NewNotFoundError("Movie not found upstream", nil)
		}
		slog.Error("import movie failed", "tmdb", req.TMDBID, "error", err)
		return apis.NewInternalServerError("Failed to import movie", nil)
	}

	return e.JSON(http.StatusOK, movie)
}

// CreateShowtime schedules a screening.
func (h *AdminHandler) CreateShowtime(e *core.RequestEvent) error {
	var req showtimeRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validate.Struct(&req); err != nil {
		return apis.NewBadRequestError("Invalid showtime", err)
	}

	if _, err := h.store.Get("movies", req.MovieID); err != nil {
		return apis.NewBadRequestError("Unknown movie", nil)
	}
	if _, err := h.store.Get("theatres", req.TheatreID); err != nil {
		return apis.NewBadRequestError("Unknown theatre", nil)
	}

	id, err := h.store.Create("showtimes", map[string]any{
		"movie":   req.MovieID,
		"theatre": req.TheatreID,
		"date":    req.Date,
		"time":    req.Time,
		"format":  req.Format,
	})
	if err != nil {
		slog.Error("create showtime failed", "error", err)
		return apis.NewInternalServerError("Failed to create showtime", nil)
	}

	slog.Info("showtime created", "showtime", id, "by", e.Auth.Id)
	return e.JSON(http.StatusOK, map[string]any{"id": id})
}

// ListUsers returns account profiles for the admin dashboard.
func (h *AdminHandler) ListUsers(e *core.RequestEvent) error {
	records, err := h.store.Query("users", nil, "-created", 0)
	if err != nil {
		slog.Error("list users failed", "error", err)
		return apis.NewInternalServerError("Failed to load users", nil)
	}

	users := make([]map[string]any, len(records))
	for i, rec := range records {
		users[i] = map[string]any{
			"id":      rec.ID,
			"email":   rec.GetString("email"),
			"name":    rec.GetString("name"),
			"role":    rec.GetString("role"),
			"created": rec.Created,
		}
	}

	return e.JSON(http.StatusOK, map[string]any{"users": users})
}

// SetUserRole promotes or demotes an account.
func (h *AdminHandler) SetUserRole(e *core.RequestEvent) error {
	userID := e.Request.PathValue("id")

	var req roleRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validate.Struct(&req); err != nil {
		return apis.NewBadRequestError("Role must be user or admin", err)
	}

	if err := h.identity.SetRole(e.Request.Context(), userID, req.Role); err != nil {
		if errors.Is(err, status.ErrUserNotFound) {
			return apis.NewNotFoundError("User not found", nil)
		}
		slog.Error("set role failed", "user", userID, "error", err)
		return apis.NewInternalServerError("Failed to change role", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{"user": userID, "role": req.Role})
}

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

type AuthHandler struct {
	app      *pocketbase.PocketBase
	identity *services.IdentityService
}

func NewAuthHandler(app *pocketbase.PocketBase, identity *services.IdentityService) *AuthHandler {
	return &AuthHandler{
		app:      app,
		identity: identity,
	}
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"max=100"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUp registers an account and returns an authenticated session.
func (h *AuthHandler) SignUp(e *core.RequestEvent) error {
	var req signUpRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validate.Struct(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	session, err := h.identity.SignUp(e.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrEmailTaken):
			return apis.NewBadRequestError("An account with this email already exists", nil)
		case errors.Is(err, status.ErrWeakPassword):
			return apis.NewBadRequestError("Password must be at least 8 characters", nil)
		default:
			slog.Error("signup failed", "error", err)
			return apis.NewInternalServerError("Failed to create account", nil)
		}
	}

	return e.JSON(http.StatusOK, session)
}

// SignIn authenticates an email/password pair.
func (h *AuthHandler) SignIn(e *core.RequestEvent) error {
	var req signInRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validate.Struct(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	session, err := h.identity.SignIn(e.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, status.ErrInvalidCredentials) {
			return apis.NewUnauthorizedError("Invalid email or password", nil)
		}
		slog.Error("signin failed", "error", err)
		return apis.NewInternalServerError("Failed to sign in", nil)
	}

	return e.JSON(http.StatusOK, session)
}

// Me returns the current session. Profile fields are backfilled for
// accounts that came in through an OAuth provider.
func (h *AuthHandler) Me(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	if err := h.identity.EnsureProfile(e.Request.Context(), e.Auth); err != nil {
		slog.Warn("profile backfill failed", "user", e.Auth.Id, "error", err)
	}

	session := h.identity.SessionFromRecord(e.Auth)
	return e.JSON(http.StatusOK, map[string]any{
		"session":  session,
		"is_admin": session.IsAdmin(),
	})
}

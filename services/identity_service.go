package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"cinebook/internal/status"
	"cinebook/models"
	"cinebook/store"
)

const minPasswordLength = 8

// IdentityService manages accounts on top of the store's auth
// collection. Password hashing, token signing and OAuth exchanges are
// owned by the store; this layer adds profile fields, role defaults and
// domain error mapping.
type IdentityService struct {
	Store *store.Client
}

func NewIdentityService(st *store.Client) *IdentityService {
	return &IdentityService{Store: st}
}

// SignUp registers a new account and returns an authenticated session.
func (s *IdentityService) SignUp(ctx context.Context, email, password, name string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < minPasswordLength {
		return nil, status.ErrWeakPassword
	}

	app := s.Store.App()
	if existing, err := app.FindAuthRecordByEmail("users", email); err == nil && existing != nil {
		return nil, status.ErrEmailTaken
	}

	col, err := app.FindCollectionByNameOrId("users")
	if err != nil {
		return nil, fmt.Errorf("identity: users collection: %w", err)
	}

	rec := core.NewRecord(col)
	rec.SetEmail(email)
	rec.SetPassword(password)
	rec.Set("name", strings.TrimSpace(name))
	rec.Set("role", models.RoleUser)
	rec.SetVerified(false)

	if err := app.Save(rec); err != nil {
		return nil, fmt.Errorf("identity: create account: %w", err)
	}

	slog.Info("account created", "user", rec.Id)
	return s.sessionFor(rec)
}

// SignIn authenticates an email/password pair. Unknown emails and wrong
// passwords both map to ErrInvalidCredentials so callers cannot probe
// which accounts exist.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	rec, err := s.Store.App().FindAuthRecordByEmail("users", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("identity: lookup %s: %w", email, err)
	}
	if !rec.ValidatePassword(password) {
		return nil, status.ErrInvalidCredentials
	}

	return s.sessionFor(rec)
}

// EnsureProfile backfills profile fields for accounts created outside
// the signup flow (OAuth sign-ins). Safe to call repeatedly.
func (s *IdentityService) EnsureProfile(ctx context.Context, rec *core.Record) error {
	changed := false
	if rec.GetString("role") == "" {
		rec.Set("role", models.RoleUser)
		changed = true
	}
	if rec.GetString("name") == "" {
		rec.Set("name", nameFromEmail(rec.Email()))
		changed = true
	}
	if !changed {
		return nil
	}
	if err := s.Store.App().Save(rec); err != nil {
		return fmt.Errorf("identity: backfill profile %s: %w", rec.Id, err)
	}
	return nil
}

// SetRole promotes or demotes an account. Only user and admin are
// accepted.
func (s *IdentityService) SetRole(ctx context.Context, userID, role string) error {
	if role != models.RoleUser && role != models.RoleAdmin {
		return fmt.Errorf("identity: unknown role %q", role)
	}

	rec, err := s.Store.App().FindRecordById("users", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrUserNotFound
		}
		return fmt.Errorf("identity: lookup user %s: %w", userID, err)
	}

	rec.Set("role", role)
	if err := s.Store.App().Save(rec); err != nil {
		return fmt.Errorf("identity: set role %s: %w", userID, err)
	}
	slog.Info("role changed", "user", userID, "role", role)
	return nil
}

// SessionFromRecord builds a session view of an already-authenticated
// record, without minting a new token.
func (s *IdentityService) SessionFromRecord(rec *core.Record) *models.Session {
	session := sessionFields(rec)
	return &session
}

func (s *IdentityService) sessionFor(rec *core.Record) (*models.Session, error) {
	token, err := rec.NewAuthToken()
	if err != nil {
		return nil, fmt.Errorf("identity: mint token: %w", err)
	}

	session := sessionFields(rec)
	session.Token = token
	return &session, nil
}

func sessionFields(rec *core.Record) models.Session {
	name := rec.GetString("name")
	if name == "" {
		name = nameFromEmail(rec.Email())
	}

	role := rec.GetString("role")
	if role == "" {
		role = models.RoleUser
	}

	return models.Session{
		UserID:    rec.Id,
		Email:     rec.Email(),
		Name:      name,
		Role:      role,
		AvatarURL: rec.GetString("avatar"),
		CreatedAt: rec.GetDateTime("created").Time().UTC(),
	}
}

// nameFromEmail derives a display name from the part before the @.
func nameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"

	"cinebook/models"
)

// validate is shared across handlers; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New()

// RequireRole guards a route group so only authenticated users with one
// of the given roles get through. Stack it after apis.RequireAuth.
func RequireRole(roles ...string) *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "requireRole",
		Func: func(e *core.RequestEvent) error {
			if e.Auth == nil {
				return apis.NewUnauthorizedError("Unauthorized", map[string]string{"redirect": "/signin"})
			}

			role := e.Auth.GetString("role")
			if role == "" {
				role = models.RoleUser
			}
			for _, allowed := range roles {
				if role == allowed {
					return e.Next()
				}
			}
			return apis.NewForbiddenError("Insufficient permissions", nil)
		},
	}
}

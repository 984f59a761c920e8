package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Adds the profile fields the booking flow relies on to the default
// auth collection.
func init() {
	m.Register(func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		if collection.Fields.GetByName("name") == nil {
			collection.Fields.Add(&core.TextField{Name: "name", Max: 100})
		}
		if collection.Fields.GetByName("avatar") == nil {
			collection.Fields.Add(&core.TextField{Name: "avatar", Max: 500})
		}
		collection.Fields.Add(
			&core.SelectField{Name: "role", MaxSelect: 1, Values: []string{"user", "admin"}},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection.Fields.RemoveByName("role")

		return app.Save(collection)
	})
}

package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("bookings")

		collection.Fields.Add(
			&core.TextField{Name: "reference", Required: true, Max: 40},
			&core.RelationField{Name: "user", Required: true, MaxSelect: 1, CollectionId: users.Id},
			&core.JSONField{Name: "snapshot"},
			&core.JSONField{Name: "seats"},
			&core.NumberField{Name: "subtotal"},
			&core.NumberField{Name: "service_fee"},
			&core.NumberField{Name: "total"},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"confirmed", "cancelled"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_bookings_reference", true, "reference", "")

		// Users only ever see their own bookings.
		collection.ListRule = types.Pointer("user = @request.auth.id")
		collection.ViewRule = types.Pointer("user = @request.auth.id")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}

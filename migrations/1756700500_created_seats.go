package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		showtimes, err := app.FindCollectionByNameOrId("showtimes")
		if err != nil {
			return err
		}
		bookings, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("seats")

		collection.Fields.Add(
			&core.RelationField{Name: "showtime", Required: true, MaxSelect: 1, CollectionId: showtimes.Id, CascadeDelete: true},
			&core.TextField{Name: "seat_key", Required: true, Max: 40},
			&core.TextField{Name: "label", Required: true, Max: 4},
			&core.TextField{Name: "row", Required: true, Max: 1},
			&core.NumberField{Name: "number", Required: true},
			&core.SelectField{Name: "class", Required: true, MaxSelect: 1, Values: []string{"VIP", "Regular"}},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"available", "locked", "booked"}},
			&core.TextField{Name: "locked_by", Max: 32},
			&core.TextField{Name: "booked_by", Max: 32},
			&core.RelationField{Name: "booking", MaxSelect: 1, CollectionId: bookings.Id},
			&core.DateField{Name: "locked_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_seats_showtime_label", true, "showtime, label", "")

		collection.ListRule = types.Pointer("")
		collection.ViewRule = types.Pointer("")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("seats")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}

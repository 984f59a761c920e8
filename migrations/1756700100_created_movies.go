package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("movies")

		collection.Fields.Add(
			&core.TextField{Name: "title", Required: true, Max: 200},
			&core.JSONField{Name: "genres"},
			&core.NumberField{Name: "rating"},
			&core.TextField{Name: "synopsis"},
			&core.NumberField{Name: "duration"},
			&core.TextField{Name: "release_date"},
			&core.TextField{Name: "poster_path"},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"now_showing", "coming_soon"}},
			&core.NumberField{Name: "tmdb_id"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// The catalog is publicly browsable; writes go through the admin API.
		collection.ListRule = types.Pointer("")
		collection.ViewRule = types.Pointer("")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("movies")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}

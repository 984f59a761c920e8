package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		movies, err := app.FindCollectionByNameOrId("movies")
		if err != nil {
			return err
		}
		theatres, err := app.FindCollectionByNameOrId("theatres")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("showtimes")

		collection.Fields.Add(
			&core.RelationField{Name: "movie", Required: true, MaxSelect: 1, CollectionId: movies.Id},
			&core.RelationField{Name: "theatre", Required: true, MaxSelect: 1, CollectionId: theatres.Id},
			&core.TextField{Name: "date", Required: true, Max: 10},
			&core.TextField{Name: "time", Required: true, Max: 10},
			&core.SelectField{Name: "format", Required: true, MaxSelect: 1, Values: []string{"2D", "3D", "IMAX"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.ListRule = types.Pointer("")
		collection.ViewRule = types.Pointer("")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("showtimes")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}

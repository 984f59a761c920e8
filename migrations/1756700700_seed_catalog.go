package migrations

import (
	"fmt"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"

	"cinebook/models"
)

// Seeds a small demo catalog: two movies across three theatres with
// eight showtimes, plus a full seat grid per showtime. Skipped when
// theatres already exist.
func init() {
	m.Register(func(app core.App) error {
		existing, err := app.FindRecordsByFilter("theatres", "id != ''", "", 1, 0)
		if err == nil && len(existing) > 0 {
			return nil
		}

		theatresCol, err := app.FindCollectionByNameOrId("theatres")
		if err != nil {
			return err
		}
		moviesCol, err := app.FindCollectionByNameOrId("movies")
		if err != nil {
			return err
		}
		showtimesCol, err := app.FindCollectionByNameOrId("showtimes")
		if err != nil {
			return err
		}
		seatsCol, err := app.FindCollectionByNameOrId("seats")
		if err != nil {
			return err
		}

		theatres := []map[string]any{
			{"name": "Grand Cinema", "location": "Downtown", "amenities": []string{"Dolby Atmos", "Recliner Seats", "Food Court"}},
			{"name": "City Plex", "location": "Mall Road", "amenities": []string{"3D Projection", "VIP Lounge", "Bar"}},
			{"name": "IMAX Arena", "location": "Tech Park", "amenities": []string{"IMAX", "4K Laser", "Dolby Vision"}},
		}
		theatreIDs := make([]string, len(theatres))
		for i, fields := range theatres {
			rec := core.NewRecord(theatresCol)
			for k, v := range fields {
				rec.Set(k, v)
			}
			if err := app.Save(rec); err != nil {
				return fmt.Errorf("seed theatre: %w", err)
			}
			theatreIDs[i] = rec.Id
		}

		movies := []map[string]any{
			{
				"title":        "Inception",
				"genres":       []string{"Sci-Fi", "Thriller"},
				"rating":       8.8,
				"synopsis":     "A thief who enters dream worlds...",
				"duration":     148,
				"release_date": "2010-07-16",
				"status":       "now_showing",
				"poster_path":  "/9gk7adHYeDvHkCSEqAvQNLV5Uge.jpg",
			},
			{
				"title":        "The Dark Knight",
				"genres":       []string{"Action", "Drama"},
				"rating":       9.0,
				"synopsis":     "Batman raises the stakes...",
				"duration":     152,
				"release_date": "2008-07-18",
				"status":       "now_showing",
				"poster_path":  "/qJ2tW6WMUDux911r6m7haRef0WH.jpg",
			},
		}
		movieIDs := make([]string, len(movies))
		for i, fields := range movies {
			rec := core.NewRecord(moviesCol)
			for k, v := range fields {
				rec.Set(k, v)
			}
			if err := app.Save(rec); err != nil {
				return fmt.Errorf("seed movie: %w", err)
			}
			movieIDs[i] = rec.Id
		}

		showtimes := []struct {
			movie   int
			theatre int
			time    string
			format  string
		}{
			{0, 0, "10:30 AM", "2D"},
			{0, 0, "02:00 PM", "3D"},
			{0, 1, "06:30 PM", "2D"},
			{0, 2, "09:00 PM", "IMAX"},
			{1, 0, "11:00 AM", "IMAX"},
			{1, 1, "03:00 PM", "2D"},
			{1, 2, "08:00 PM", "3D"},
			{1, 2, "11:30 PM", "2D"},
		}
		for _, st := range showtimes {
			rec := core.NewRecord(showtimesCol)
			rec.Set("movie", movieIDs[st.movie])
			rec.Set("theatre", theatreIDs[st.theatre])
			rec.Set("date", "2026-09-05")
			rec.Set("time", st.time)
			rec.Set("format", st.format)
			if err := app.Save(rec); err != nil {
				return fmt.Errorf("seed showtime: %w", err)
			}

			if err := seedSeatGrid(app, seatsCol, rec.Id); err != nil {
				return err
			}
		}

		return nil
	}, func(app core.App) error {
		// Seed data is removed with the collections themselves.
		return nil
	})
}

func seedSeatGrid(app core.App, seatsCol *core.Collection, showtimeID string) error {
	for r := 0; r < 8; r++ {
		row := string(rune('A' + r))
		for number := 1; number <= 10; number++ {
			rec := core.NewRecord(seatsCol)
			rec.Set("showtime", showtimeID)
			rec.Set("seat_key", models.SeatKey(showtimeID, row, number))
			rec.Set("label", models.SeatLabel(row, number))
			rec.Set("row", row)
			rec.Set("number", number)
			rec.Set("class", models.SeatClassForRow(row))
			rec.Set("status", models.SeatAvailable)
			if err := app.Save(rec); err != nil {
				return fmt.Errorf("seed seat %s%d: %w", row, number, err)
			}
		}
	}
	return nil
}

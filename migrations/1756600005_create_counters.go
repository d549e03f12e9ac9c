package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// The ticket-number sequence lives in a plain table rather than a
// collection: it is bumped with a raw UPDATE inside the order transaction
// and never exposed through the records API.
func init() {
	m.Register(func(app core.App) error {
		_, err := app.DB().NewQuery(
			"CREATE TABLE IF NOT EXISTS counters (name TEXT PRIMARY KEY, value INTEGER NOT NULL DEFAULT 0)",
		).Execute()
		if err != nil {
			return err
		}

		_, err = app.DB().NewQuery(
			"INSERT INTO counters (name, value) VALUES ('ticket_number', 0) ON CONFLICT(name) DO NOTHING",
		).Execute()
		return err
	}, func(app core.App) error {
		_, err := app.DB().NewQuery("DROP TABLE IF EXISTS counters").Execute()
		return err
	})
}

package sqlite

import (
	"context"

	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the sqlite migration executor
	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the carpark store (SQLite).
var Migrations = migrate.NewGroup("carpark")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_carpark_sessions",
			Version: "20240504000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS carpark_sessions (
    id         TEXT PRIMARY KEY,
    license    TEXT NOT NULL CHECK (license <> ''),
    arrival    INTEGER NOT NULL,
    departure  INTEGER CHECK (departure IS NULL OR departure >= arrival),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_carpark_sessions_license ON carpark_sessions (license);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS carpark_sessions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "index_carpark_open_sessions",
			Version: "20240504000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE INDEX IF NOT EXISTS idx_carpark_sessions_open
    ON carpark_sessions (license, arrival DESC)
    WHERE departure IS NULL;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP INDEX IF EXISTS idx_carpark_sessions_open`)
				return err
			},
		},
	)
}

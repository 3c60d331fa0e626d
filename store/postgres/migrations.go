package postgres

import (
	"context"

	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the pg migration executor
	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the carpark store (PostgreSQL).
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
    arrival    TIMESTAMPTZ NOT NULL,
    departure  TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT carpark_sessions_departure_after_arrival
        CHECK (departure IS NULL OR departure >= arrival)
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

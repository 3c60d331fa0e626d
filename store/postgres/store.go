// Package postgres implements store.Store on PostgreSQL via Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	carparkstore "github.com/xraph/carpark/store"
	"github.com/xraph/carpark/types"
)

// compile-time interface check
var _ carparkstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("carpark/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("carpark/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return carpark.Unavailable("carpark/postgres: ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Session Store ====================

func (s *Store) CreateSession(ctx context.Context, license string, arrival time.Time) (id.SessionID, error) {
	license = session.NormalizeLicense(license)
	if license == "" {
		return id.Nil, carpark.ValidationError{Field: "license", Message: "must not be empty"}
	}
	if arrival.IsZero() {
		return id.Nil, carpark.ValidationError{Field: "arrival", Message: "must be set"}
	}

	sess := &session.Session{
		Entity:  types.NewEntity(),
		ID:      id.NewSessionID(),
		License: license,
		Arrival: arrival.UTC(),
	}
	if _, err := s.pg.NewInsert(toSessionModel(sess)).Exec(ctx); err != nil {
		return id.Nil, carpark.Unavailable("carpark/postgres: create session", err)
	}
	return sess.ID, nil
}

// CloseSession sets departure with one conditional UPDATE ... RETURNING;
// Postgres row locking serializes concurrent closes so only one sees a
// matching row. When none does, a follow-up read only picks the error.
func (s *Store) CloseSession(ctx context.Context, sessionID id.SessionID, departure time.Time) (*session.Session, error) {
	if sessionID.IsNil() {
		return nil, carpark.ValidationError{Field: "recordID", Message: "must be set"}
	}
	if departure.IsZero() {
		return nil, carpark.ValidationError{Field: "departure", Message: "must be set"}
	}

	dep := departure.UTC()
	var m sessionModel
	err := s.pg.NewUpdate((*sessionModel)(nil)).
		Set("departure = $1", dep).
		Set("updated_at = $2", now()).
		Where("id = $3", sessionID.String()).
		Where("departure IS NULL").
		Where("arrival <= $4", dep).
		Returning(sessionColumns...).
		Scan(ctx, m.scanTargets()...)
	if err == nil {
		return fromSessionModel(&m)
	}
	if !isNoRows(err) {
		return nil, carpark.Unavailable("carpark/postgres: close session", err)
	}

	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsOpen() {
		return nil, fmt.Errorf("%w: %s", carpark.ErrAlreadyClosed, sessionID)
	}
	return nil, fmt.Errorf("%w: departure %s before arrival %s",
		carpark.ErrInvalidDuration, dep.Format(time.RFC3339Nano), sess.Arrival.Format(time.RFC3339Nano))
}

func (s *Store) GetSession(ctx context.Context, sessionID id.SessionID) (*session.Session, error) {
	m := new(sessionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", sessionID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", carpark.ErrNotFound, sessionID)
		}
		return nil, carpark.Unavailable("carpark/postgres: get session", err)
	}
	return fromSessionModel(m)
}

func (s *Store) FindOpenByLicense(ctx context.Context, license string, limit int) ([]*session.Session, error) {
	license = session.NormalizeLicense(license)
	if limit <= 0 {
		limit = 1
	}

	var models []sessionModel
	err := s.pg.NewSelect(&models).
		Where("license = $1", license).
		Where("departure IS NULL").
		OrderExpr("arrival DESC, id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, carpark.Unavailable("carpark/postgres: find open by license", err)
	}
	return fromSessionModels(models)
}

func (s *Store) ListOpen(ctx context.Context) ([]*session.Session, error) {
	var models []sessionModel
	err := s.pg.NewSelect(&models).
		Where("departure IS NULL").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, carpark.Unavailable("carpark/postgres: list open", err)
	}
	return fromSessionModels(models)
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

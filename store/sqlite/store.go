// Package sqlite implements store.Store on SQLite via Grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	carparkstore "github.com/xraph/carpark/store"
	"github.com/xraph/carpark/types"
)

// compile-time interface check
var _ carparkstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("carpark/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("carpark/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return carpark.Unavailable("carpark/sqlite: ping", err)
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
	if _, err := s.sdb.NewInsert(toSessionModel(sess)).Exec(ctx); err != nil {
		return id.Nil, carpark.Unavailable("carpark/sqlite: create session", err)
	}
	return sess.ID, nil
}

// CloseSession sets departure with one conditional UPDATE ... RETURNING. When
// no row matches, a follow-up read only decides which error to report.
func (s *Store) CloseSession(ctx context.Context, sessionID id.SessionID, departure time.Time) (*session.Session, error) {
	if sessionID.IsNil() {
		return nil, carpark.ValidationError{Field: "recordID", Message: "must be set"}
	}
	if departure.IsZero() {
		return nil, carpark.ValidationError{Field: "departure", Message: "must be set"}
	}

	dep := departure.UTC().UnixNano()
	var m sessionModel
	err := s.sdb.NewUpdate((*sessionModel)(nil)).
		Set("departure = ?", dep).
		Set("updated_at = ?", now().UnixNano()).
		Where("id = ?", sessionID.String()).
		Where("departure IS NULL").
		Where("arrival <= ?", dep).
		Returning(sessionColumns...).
		Scan(ctx, m.scanTargets()...)
	if err == nil {
		return fromSessionModel(&m)
	}
	if !isNoRows(err) {
		return nil, carpark.Unavailable("carpark/sqlite: close session", err)
	}

	// Nothing matched: decide why.
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsOpen() {
		return nil, fmt.Errorf("%w: %s", carpark.ErrAlreadyClosed, sessionID)
	}
	return nil, fmt.Errorf("%w: departure %s before arrival %s",
		carpark.ErrInvalidDuration, departure.UTC().Format(time.RFC3339Nano), sess.Arrival.Format(time.RFC3339Nano))
}

func (s *Store) GetSession(ctx context.Context, sessionID id.SessionID) (*session.Session, error) {
	m := new(sessionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", sessionID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", carpark.ErrNotFound, sessionID)
		}
		return nil, carpark.Unavailable("carpark/sqlite: get session", err)
	}
	return fromSessionModel(m)
}

func (s *Store) FindOpenByLicense(ctx context.Context, license string, limit int) ([]*session.Session, error) {
	license = session.NormalizeLicense(license)
	if limit <= 0 {
		limit = 1
	}

	var models []sessionModel
	err := s.sdb.NewSelect(&models).
		Where("license = ?", license).
		Where("departure IS NULL").
		OrderExpr("arrival DESC, id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, carpark.Unavailable("carpark/sqlite: find open by license", err)
	}
	return fromSessionModels(models)
}

func (s *Store) ListOpen(ctx context.Context) ([]*session.Session, error) {
	var models []sessionModel
	err := s.sdb.NewSelect(&models).
		Where("departure IS NULL").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, carpark.Unavailable("carpark/sqlite: list open", err)
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

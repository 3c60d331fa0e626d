// Package mongo implements store.Store on MongoDB through the Grove mongo
// driver. Sessions live in a single collection; closing a session is one
// FindOneAndUpdate guarded on the departure still being null.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/carpark"
	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	carparkstore "github.com/xraph/carpark/store"
	"github.com/xraph/carpark/types"
)

// Defaults match the collection layout the lot has always used.
const (
	DefaultDatabase   = "carpark"
	DefaultCollection = "vehicles"
)

// compile-time interface check
var _ carparkstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
	col string
}

// Option configures a Store.
type Option func(*Store)

// WithCollection overrides the session collection name.
func WithCollection(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.col = name
		}
	}
}

// New creates a new MongoDB store backed by Grove ORM. db must be opened on
// the mongo driver.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
		col: DefaultCollection,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens uri on the Grove mongo driver and returns a store over it.
// An empty database means DefaultDatabase. Close releases the connection.
func Connect(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}

	drv := mongodriver.New()
	if err := drv.Open(ctx, uri, mongodriver.WithDatabase(database)); err != nil {
		_ = drv.Close() //nolint:errcheck // already failing
		return nil, carpark.Unavailable("carpark/mongo: connect", err)
	}

	db, err := grove.Open(drv)
	if err != nil {
		_ = drv.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("carpark/mongo: open grove: %w", err)
	}
	return New(db, opts...), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Collection returns the session collection name.
func (s *Store) Collection() string { return s.col }

// Migrate creates indexes for the session collection.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.mdb.Collection(s.col).Indexes().CreateMany(ctx, migrationIndexes()); err != nil {
		return fmt.Errorf("carpark/mongo: migrate %s indexes: %w", s.col, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return carpark.Unavailable("carpark/mongo: ping", err)
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
	if _, err := s.mdb.NewInsert(toSessionModel(sess)).Collection(s.col).Exec(ctx); err != nil {
		return id.Nil, carpark.Unavailable("carpark/mongo: create session", err)
	}
	return sess.ID, nil
}

func (s *Store) CloseSession(ctx context.Context, sessionID id.SessionID, departure time.Time) (*session.Session, error) {
	if sessionID.IsNil() {
		return nil, carpark.ValidationError{Field: "recordID", Message: "must be set"}
	}
	if departure.IsZero() {
		return nil, carpark.ValidationError{Field: "departure", Message: "must be set"}
	}

	dep := departure.UTC()
	filter := bson.M{
		"_id":       sessionID.String(),
		"departure": nil,
		"arrival":   bson.M{"$lte": dep},
	}
	update := bson.M{"$set": bson.M{
		"departure":  dep,
		"updated_at": now(),
	}}

	var m sessionModel
	err := s.mdb.Collection(s.col).FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err == nil {
		return fromSessionModel(&m)
	}
	if !isNoDocuments(err) {
		return nil, carpark.Unavailable("carpark/mongo: close session", err)
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
		carpark.ErrInvalidDuration, dep.Format(time.RFC3339Nano), sess.Arrival.Format(time.RFC3339Nano))
}

func (s *Store) GetSession(ctx context.Context, sessionID id.SessionID) (*session.Session, error) {
	var m sessionModel
	err := s.mdb.NewFind(&m).
		Collection(s.col).
		Filter(bson.M{"_id": sessionID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", carpark.ErrNotFound, sessionID)
		}
		return nil, carpark.Unavailable("carpark/mongo: get session", err)
	}
	return fromSessionModel(&m)
}

func (s *Store) FindOpenByLicense(ctx context.Context, license string, limit int) ([]*session.Session, error) {
	license = session.NormalizeLicense(license)
	if limit <= 0 {
		limit = 1
	}

	var models []sessionModel
	err := s.mdb.NewFind(&models).
		Collection(s.col).
		Filter(bson.M{"license": license, "departure": nil}).
		Sort(bson.D{{Key: "arrival", Value: -1}, {Key: "_id", Value: -1}}).
		Limit(int64(limit)).
		Scan(ctx)
	if err != nil {
		return nil, carpark.Unavailable("carpark/mongo: find open by license", err)
	}
	return fromSessionModels(models)
}

func (s *Store) ListOpen(ctx context.Context) ([]*session.Session, error) {
	var models []sessionModel
	err := s.mdb.NewFind(&models).
		Collection(s.col).
		Filter(bson.M{"departure": nil}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, carpark.Unavailable("carpark/mongo: list open", err)
	}
	return fromSessionModels(models)
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the session collection.
func migrationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "license", Value: 1}}},
		{Keys: bson.D{{Key: "license", Value: 1}, {Key: "departure", Value: 1}, {Key: "arrival", Value: -1}}},
		{Keys: bson.D{{Key: "departure", Value: 1}}},
	}
}

package mongo

import (
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove/drivers/mongodriver"
)

// MongoDatabase exposes the driver database for test cleanup.
func MongoDatabase(s *Store) *mongodrv.Database {
	return mongodriver.Unwrap(s.DB()).Database()
}

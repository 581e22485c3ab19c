package repositories

import (
	"context"
	"fmt"

	"taskhub/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique e-mail index and the lookup indexes used by
// the services.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "resetToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		TasksCollection: {
			{Keys: bson.D{{Key: "project", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}

	for collection, specs := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		logging.Logger.Infof("Event ID: DB_INDEXES_READY, Description: Indexes ensured on collection %s", collection)
	}
	return nil
}

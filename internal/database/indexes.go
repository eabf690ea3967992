package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func EnsureUserIndexes(db *mongo.Database, logger *zap.Logger) error {
	return ensureIndex(db, "users", mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}, logger)
}

func EnsureRequestIndexes(db *mongo.Database, logger *zap.Logger) error {
	return ensureIndex(db, "requests", mongo.IndexModel{
		Keys:    bson.D{{Key: "assignedTo", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("assignedTo_index"),
	}, logger)
}

func EnsureRefreshTokenIndexes(db *mongo.Database, logger *zap.Logger) error {
	return ensureIndex(db, "refresh_tokens", mongo.IndexModel{
		Keys:    bson.D{{Key: "tokenHash", Value: 1}},
		Options: options.Index().SetName("tokenHash_index"),
	}, logger)
}

func ensureIndex(db *mongo.Database, collection string, model mongo.IndexModel, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	name := ""
	if model.Options != nil && model.Options.Name != nil {
		name = *model.Options.Name
	}
	log := logger.With(zap.String("collection", collection), zap.String("index", name))

	log.Debug("creating index")
	if _, err := db.Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
		log.Warn("index creation failed", zap.Error(err))
		return err
	}
	log.Info("index ready")
	return nil
}

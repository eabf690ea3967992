package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"pickup-backend/internal/models"
	"pickup-backend/internal/xerrors"
)

const RefreshTokensCollection = "refresh_tokens"

type MongoTokenStore struct {
	coll *mongo.Collection
}

func NewMongoTokenStore(db *mongo.Database) *MongoTokenStore {
	return &MongoTokenStore{coll: db.Collection(RefreshTokensCollection)}
}

func (s *MongoTokenStore) Insert(ctx context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	stored := *t
	if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, stored); err != nil {
		return nil, fmt.Errorf("insert refresh token: %w", err)
	}
	return &stored, nil
}

// FindActive looks up a non-revoked token by hash.
func (s *MongoTokenStore) FindActive(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := s.coll.FindOne(ctx, bson.M{"tokenHash": hash, "revoked": false}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, xerrors.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &t, nil
}

func (s *MongoTokenStore) Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	set := bson.M{"revoked": true}
	if replacedBy != nil {
		set["replacedByToken"] = *replacedBy
	}
	if _, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeByHash returns ErrNoDocument when no active token matched.
func (s *MongoTokenStore) RevokeByHash(ctx context.Context, hash string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"tokenHash": hash, "revoked": false}, bson.M{"$set": bson.M{"revoked": true}})
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return xerrors.ErrNoDocument
	}
	return nil
}

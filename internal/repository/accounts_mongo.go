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

const AccountsCollection = "users"

type MongoAccountStore struct {
	coll *mongo.Collection
}

func NewMongoAccountStore(db *mongo.Database) *MongoAccountStore {
	return &MongoAccountStore{coll: db.Collection(AccountsCollection)}
}

// Insert relies on the email_unique index to reject duplicates.
func (s *MongoAccountStore) Insert(ctx context.Context, a *models.Account) (*models.Account, error) {
	stored := *a
	if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, xerrors.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &stored, nil
}

func (s *MongoAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoAccountStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoAccountStore) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return count > 0, nil
}

func (s *MongoAccountStore) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var raw bson.M
	err := s.coll.FindOne(ctx, filter).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, xerrors.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}

	a, err := normalizeAccountDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &a, nil
}

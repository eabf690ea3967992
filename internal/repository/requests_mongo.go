package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pickup-backend/internal/models"
	"pickup-backend/internal/xerrors"
)

const RequestsCollection = "requests"

type MongoRequestStore struct {
	coll *mongo.Collection
}

func NewMongoRequestStore(db *mongo.Database) *MongoRequestStore {
	return &MongoRequestStore{coll: db.Collection(RequestsCollection)}
}

func (s *MongoRequestStore) Insert(ctx context.Context, r *models.PickupRequest) (*models.PickupRequest, error) {
	stored := r.Clone()
	if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, stored); err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	return stored, nil
}

func (s *MongoRequestStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PickupRequest, error) {
	var raw bson.M
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, xerrors.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("find request: %w", err)
	}
	r, err := normalizeRequestDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &r, nil
}

// FindByAssignee uses assignedTo_index and returns requests in insertion order.
func (s *MongoRequestStore) FindByAssignee(ctx context.Context, assignee primitive.ObjectID, page models.Page) ([]models.PickupRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if page.Enabled() {
		opts.SetSkip(page.Skip()).SetLimit(page.Limit)
	}

	cursor, err := s.coll.Find(ctx, bson.M{"assignedTo": assignee}, opts)
	if err != nil {
		return nil, fmt.Errorf("find requests: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeRequests(ctx, cursor)
}

// Replace overwrites the whole document; concurrent writers are last-write-wins.
func (s *MongoRequestStore) Replace(ctx context.Context, r *models.PickupRequest) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": r.ID}, r)
	if err != nil {
		return fmt.Errorf("replace request: %w", err)
	}
	if res.MatchedCount == 0 {
		return xerrors.ErrNoDocument
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"golang.org/x/crypto/bcrypt"

	"pickup-backend/internal/models"
	"pickup-backend/internal/xerrors"
)

func TestMongoRequestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "ewaste." + RequestsCollection

	mt.Run("find by id normalizes legacy document", func(mt *mtest.T) {
		store := NewMongoRequestStore(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "customerName", Value: "A"},
			{Key: "status", Value: "pending"},
			{Key: "verificationResponses", Value: bson.D{{Key: "Approximate weight of the item", Value: "3kg"}}},
			{Key: "createdAt", Value: primitive.NewDateTimeFromTime(time.Now())},
		}))

		r, err := store.FindByID(context.Background(), id)
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if r.Assessment == nil || r.Assessment.Responses["Approximate weight of the item"] != "3kg" {
			t.Fatalf("legacy responses not normalized: %+v", r.Assessment)
		}
	})

	mt.Run("find by id miss", func(mt *mtest.T) {
		store := NewMongoRequestStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		if _, err := store.FindByID(context.Background(), primitive.NewObjectID()); !errors.Is(err, xerrors.ErrNoDocument) {
			t.Fatalf("expected ErrNoDocument, got %v", err)
		}
	})

	mt.Run("find by assignee", func(mt *mtest.T) {
		store := NewMongoRequestStore(mt.DB)
		assignee := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "assignedTo", Value: assignee}, {Key: "status", Value: "pending"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "assignedTo", Value: assignee}, {Key: "status", Value: "completed"}},
		))

		list, err := store.FindByAssignee(context.Background(), assignee, models.Page{Page: 1, Limit: 10})
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if len(list) != 2 || list[1].Status != models.StatusCompleted {
			t.Fatalf("unexpected list %+v", list)
		}
	})

	mt.Run("replace miss", func(mt *mtest.T) {
		store := NewMongoRequestStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := store.Replace(context.Background(), &models.PickupRequest{ID: primitive.NewObjectID()})
		if !errors.Is(err, xerrors.ErrNoDocument) {
			t.Fatalf("expected ErrNoDocument, got %v", err)
		}
	})

	mt.Run("replace hit", func(mt *mtest.T) {
		store := NewMongoRequestStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		if err := store.Replace(context.Background(), &models.PickupRequest{ID: primitive.NewObjectID()}); err != nil {
			t.Fatalf("replace failed: %v", err)
		}
	})
}

func TestMongoAccountStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate email", func(mt *mtest.T) {
		store := NewMongoAccountStore(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		_, err := store.Insert(context.Background(), &models.Account{Email: "a@x.io"})
		if !errors.Is(err, xerrors.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
	})

	mt.Run("find by email reads legacy password field", func(mt *mtest.T) {
		store := NewMongoAccountStore(mt.DB)
		hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ewaste."+AccountsCollection, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "name", Value: "Old Collector"},
			{Key: "email", Value: "old@x.io"},
			{Key: "password", Value: string(hash)},
		}))

		a, err := store.FindByEmail(context.Background(), "old@x.io")
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("secret")); err != nil {
			t.Fatalf("legacy hash not carried over: %v", err)
		}
		if a.Summary().Role != models.RoleCollector {
			t.Fatalf("expected collector role, got %q", a.Summary().Role)
		}
	})

	mt.Run("find by email prefers passwordHash", func(mt *mtest.T) {
		store := NewMongoAccountStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ewaste."+AccountsCollection, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "email", Value: "new@x.io"},
			{Key: "passwordHash", Value: "current"},
			{Key: "password", Value: "stale"},
		}))

		a, err := store.FindByEmail(context.Background(), "new@x.io")
		if err != nil || a.PasswordHash != "current" {
			t.Fatalf("expected current hash, got %+v err=%v", a, err)
		}
	})

	mt.Run("exists", func(mt *mtest.T) {
		store := NewMongoAccountStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "ewaste."+AccountsCollection, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}))

		ok, err := store.Exists(context.Background(), primitive.NewObjectID())
		if err != nil || !ok {
			t.Fatalf("expected account to exist, ok=%v err=%v", ok, err)
		}
	})
}

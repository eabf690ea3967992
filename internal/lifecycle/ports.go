package lifecycle

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pickup-backend/internal/events"
	"pickup-backend/internal/models"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=lifecycle

// RequestStore persists pickup requests. FindByID and Replace return
// xerrors.ErrNoDocument when the id is unknown.
type RequestStore interface {
	Insert(ctx context.Context, r *models.PickupRequest) (*models.PickupRequest, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.PickupRequest, error)
	FindByAssignee(ctx context.Context, assignee primitive.ObjectID, page models.Page) ([]models.PickupRequest, error)
	Replace(ctx context.Context, r *models.PickupRequest) error
}

type AccountChecker interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type Predictor interface {
	Predict(ctx context.Context, attrs models.ApplianceAttributes) (*models.PredictionResult, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// ListingCache holds assignee listings. Listing keys embed the assignee's
// generation, and every write bumps it, so a listing read before a write can
// never be served after it.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Generation(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string) error
}

package events

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pickup-backend/internal/config"
	"pickup-backend/internal/models"
)

const (
	TypeRequestCreated   = "request.created"
	TypeRequestUpdated   = "request.updated"
	TypeRequestCompleted = "request.completed"
)

// Event is the message published after a pickup request changes.
type Event struct {
	Type             string    `json:"type"`
	RequestID        string    `json:"requestId"`
	AssignedTo       string    `json:"assignedTo"`
	Status           string    `json:"status"`
	CustomerName     string    `json:"customerName"`
	ReportID         string    `json:"reportId,omitempty"`
	Amount           string    `json:"amount,omitempty"`
	PaymentStatus    string    `json:"paymentStatus,omitempty"`
	CollectionStatus string    `json:"collectionStatus,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

func NewRequestEvent(eventType string, r *models.PickupRequest, at time.Time) Event {
	ev := Event{
		Type:         eventType,
		RequestID:    r.ID.Hex(),
		AssignedTo:   r.AssignedTo.Hex(),
		Status:       string(r.Status),
		CustomerName: r.CustomerName,
		Amount:       r.Amount,
		OccurredAt:   at.UTC(),
	}
	if r.Report != nil {
		ev.ReportID = r.Report.ReportID
		ev.PaymentStatus = r.Report.PaymentStatus
		ev.CollectionStatus = r.Report.CollectionStatus
	}
	return ev
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// NewPublisher selects the broker named by EVENTS_DRIVER.
func NewPublisher(cfg config.Config, logger *zap.Logger) (Publisher, error) {
	switch cfg.EventsDriver {
	case "", "none":
		return Noop{}, nil
	case "amqp":
		return NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger), nil
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger), nil
	}
	return nil, fmt.Errorf("unknown events driver %q", cfg.EventsDriver)
}

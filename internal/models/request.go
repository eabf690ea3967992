package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the lifecycle state of a pickup request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusVerified  Status = "verified"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusCompleted:
		return true
	}
	return false
}

// PickupRequest is a customer's e-waste pickup assigned to one collector.
// Amount is kept as the string the collector typed; it is never parsed here.
type PickupRequest struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerName     string             `bson:"customerName" json:"customerName"`
	Phone            string             `bson:"phone" json:"phone"`
	ItemDetails      string             `bson:"itemDetails" json:"itemDetails"`
	Address          string             `bson:"address" json:"address"`
	PickupDate       string             `bson:"pickupDate" json:"pickupDate"`
	PickupTime       string             `bson:"pickupTime" json:"pickupTime"`
	Status           Status             `bson:"status" json:"status"`
	AssignedTo       primitive.ObjectID `bson:"assignedTo" json:"assignedTo"`
	Amount           string             `bson:"amount" json:"amount"`
	IsPaid           bool               `bson:"isPaid" json:"isPaid"`
	IsCollected      bool               `bson:"isCollected" json:"isCollected"`
	Assessment       *Assessment        `bson:"assessment,omitempty" json:"assessment,omitempty"`
	PredictionResult *PredictionResult  `bson:"predictionResult,omitempty" json:"predictionResult,omitempty"`
	Report           *Report            `bson:"report,omitempty" json:"report,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate it without touching stored state.
func (r *PickupRequest) Clone() *PickupRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.Assessment = r.Assessment.Clone()
	if r.PredictionResult != nil {
		p := *r.PredictionResult
		out.PredictionResult = &p
	}
	out.Report = r.Report.Clone()
	return &out
}

// PredictionResult is the price estimate returned by the prediction service.
type PredictionResult struct {
	ScrapPrice  float64 `bson:"scrapPrice" json:"scrapPrice"`
	RepairCost  float64 `bson:"repairCost" json:"repairCost"`
	FinalAmount float64 `bson:"finalAmount" json:"finalAmount"`
}

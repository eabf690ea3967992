package models

import "time"

const (
	PaymentPaid         = "Paid"
	PaymentPending      = "Pending"
	CollectionCollected = "Collected"
	CollectionPending   = "Pending"
)

// CustomerDetails is the customer-facing part of a request copied into a report.
type CustomerDetails struct {
	Name       string `bson:"name" json:"name"`
	Phone      string `bson:"phone" json:"phone"`
	Address    string `bson:"address" json:"address"`
	PickupDate string `bson:"pickupDate" json:"pickupDate"`
	PickupTime string `bson:"pickupTime" json:"pickupTime"`
}

// Report is a frozen snapshot of a request taken when it was last verified.
type Report struct {
	ReportID         string            `bson:"reportId" json:"reportId"`
	VerificationDate time.Time         `bson:"verificationDate" json:"verificationDate"`
	CustomerDetails  CustomerDetails   `bson:"customerDetails" json:"customerDetails"`
	ItemDetails      string            `bson:"itemDetails" json:"itemDetails"`
	Assessment       *Assessment       `bson:"assessment,omitempty" json:"assessment,omitempty"`
	PredictionResult *PredictionResult `bson:"predictionResult,omitempty" json:"predictionResult,omitempty"`
	Amount           string            `bson:"amount" json:"amount"`
	PaymentStatus    string            `bson:"paymentStatus" json:"paymentStatus"`
	CollectionStatus string            `bson:"collectionStatus" json:"collectionStatus"`
}

func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Assessment = r.Assessment.Clone()
	if r.PredictionResult != nil {
		p := *r.PredictionResult
		out.PredictionResult = &p
	}
	return &out
}

func PaymentStatusOf(isPaid bool) string {
	if isPaid {
		return PaymentPaid
	}
	return PaymentPending
}

func CollectionStatusOf(isCollected bool) string {
	if isCollected {
		return CollectionCollected
	}
	return CollectionPending
}

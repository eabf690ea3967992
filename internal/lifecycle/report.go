package lifecycle

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"pickup-backend/internal/models"
)

var entropy = &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)}

// NewReportID embeds the generation instant; the monotonic entropy keeps ids
// generated within the same millisecond distinct.
func NewReportID(requestID string, at time.Time) string {
	return "REP-" + requestID + "-" + ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// BuildReport snapshots r as it stands at the given instant.
func BuildReport(r *models.PickupRequest, at time.Time) *models.Report {
	report := &models.Report{
		ReportID:         NewReportID(r.ID.Hex(), at),
		VerificationDate: at.UTC(),
		CustomerDetails: models.CustomerDetails{
			Name:       r.CustomerName,
			Phone:      r.Phone,
			Address:    r.Address,
			PickupDate: r.PickupDate,
			PickupTime: r.PickupTime,
		},
		ItemDetails:      r.ItemDetails,
		Assessment:       r.Assessment.Clone(),
		Amount:           r.Amount,
		PaymentStatus:    models.PaymentStatusOf(r.IsPaid),
		CollectionStatus: models.CollectionStatusOf(r.IsCollected),
	}
	if r.PredictionResult != nil {
		p := *r.PredictionResult
		report.PredictionResult = &p
	}
	return report
}

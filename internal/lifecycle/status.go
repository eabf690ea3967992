package lifecycle

import "pickup-backend/internal/models"

// NextStatus derives the status an update leaves a request in. pending is
// only ever the creation default.
func NextStatus(isPaid, isCollected bool) models.Status {
	if isPaid && isCollected {
		return models.StatusCompleted
	}
	return models.StatusVerified
}

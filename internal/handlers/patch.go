package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"pickup-backend/internal/lifecycle"
	"pickup-backend/internal/models"
)

// amountValue accepts the amount as a JSON string or number and keeps the
// text exactly as sent.
type amountValue string

func (a *amountValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = amountValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return errors.New("amount must be a string or a number")
	}
	*a = amountValue(n.String())
	return nil
}

type assessmentBody struct {
	Responses map[string]string           `json:"responses"`
	Appliance *models.ApplianceAttributes `json:"appliance"`
}

// updateRequestBody is the PUT payload. A status field, if sent, is not read.
// The assessment may arrive either flat (verificationResponses / appliance) or
// in the shape the API returns it (assessment.responses / assessment.appliance).
type updateRequestBody struct {
	Amount                *amountValue                `json:"amount"`
	IsPaid                *bool                       `json:"isPaid"`
	IsCollected           *bool                       `json:"isCollected"`
	VerificationResponses map[string]string           `json:"verificationResponses"`
	Appliance             *models.ApplianceAttributes `json:"appliance"`
	Assessment            *assessmentBody             `json:"assessment"`
	PredictionResult      *models.PredictionResult    `json:"predictionResult"`
}

var errAssessmentTwice = errors.New("send the assessment either flat or nested, not both")

func (b updateRequestBody) toPatch() (lifecycle.Patch, error) {
	patch := lifecycle.Patch{
		IsPaid:                b.IsPaid,
		IsCollected:           b.IsCollected,
		VerificationResponses: b.VerificationResponses,
		Appliance:             b.Appliance,
		PredictionResult:      b.PredictionResult,
	}
	if b.Amount != nil {
		amount := strings.TrimSpace(string(*b.Amount))
		patch.Amount = &amount
	}

	if b.Assessment != nil {
		if len(b.VerificationResponses) > 0 || b.Appliance != nil {
			return lifecycle.Patch{}, errAssessmentTwice
		}
		patch.VerificationResponses = b.Assessment.Responses
		patch.Appliance = b.Assessment.Appliance
	}
	return patch, nil
}

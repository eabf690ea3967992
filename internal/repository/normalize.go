package repository

import (
	"context"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"pickup-backend/internal/models"
)

// normalizeRequestDocument upgrades documents written before assessments
// were a tagged variant: top-level verificationResponses and report.responses
// become verification assessments.
func normalizeRequestDocument(raw bson.M) (models.PickupRequest, error) {
	if _, ok := raw["assessment"]; !ok {
		if responses, ok := asMap(raw["verificationResponses"]); ok && len(responses) > 0 {
			raw["assessment"] = verificationAssessment(responses)
		}
	}
	delete(raw, "verificationResponses")

	if report, ok := asMap(raw["report"]); ok {
		if _, has := report["assessment"]; !has {
			if responses, ok := asMap(report["responses"]); ok && len(responses) > 0 {
				report["assessment"] = verificationAssessment(responses)
			}
		}
		delete(report, "responses")
		raw["report"] = report
	}

	switch typed := raw["amount"].(type) {
	case nil:
		raw["amount"] = ""
	case int32:
		raw["amount"] = strconv.FormatInt(int64(typed), 10)
	case int64:
		raw["amount"] = strconv.FormatInt(typed, 10)
	case float64:
		raw["amount"] = strconv.FormatFloat(typed, 'f', -1, 64)
	}

	if status, ok := raw["status"].(string); !ok || !models.Status(status).Valid() {
		raw["status"] = string(models.StatusPending)
	}

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.PickupRequest{}, err
	}

	var r models.PickupRequest
	if err := bson.Unmarshal(data, &r); err != nil {
		return models.PickupRequest{}, err
	}
	return r, nil
}

// normalizeAccountDocument reads accounts written before the hash moved to
// passwordHash. Those carry the bcrypt hash under password.
func normalizeAccountDocument(raw bson.M) (models.Account, error) {
	if hash, ok := raw["passwordHash"].(string); !ok || hash == "" {
		if legacy, ok := raw["password"].(string); ok {
			raw["passwordHash"] = legacy
		}
	}
	delete(raw, "password")

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.Account{}, err
	}

	var a models.Account
	if err := bson.Unmarshal(data, &a); err != nil {
		return models.Account{}, err
	}
	return a, nil
}

func verificationAssessment(responses bson.M) bson.M {
	out := bson.M{}
	for q, a := range responses {
		if s, ok := a.(string); ok {
			out[q] = s
		}
	}
	return bson.M{"kind": string(models.AssessmentVerification), "responses": out}
}

func asMap(v interface{}) (bson.M, bool) {
	switch typed := v.(type) {
	case bson.M:
		return typed, true
	case map[string]interface{}:
		return bson.M(typed), true
	case bson.D:
		m := bson.M{}
		for _, e := range typed {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

func decodeRequests(ctx context.Context, cursor *mongo.Cursor) ([]models.PickupRequest, error) {
	requests := make([]models.PickupRequest, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}

		r, err := normalizeRequestDocument(raw)
		if err != nil {
			return nil, err
		}

		requests = append(requests, r)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}

package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pickup-backend/internal/metrics"
	"pickup-backend/internal/models"
)

// payload is the body the scoring service expects. Material composition is
// sent as one comma separated string.
type payload struct {
	ItemType            string  `json:"itemType"`
	Brand               string  `json:"brand"`
	Age                 float64 `json:"age"`
	Condition           string  `json:"condition"`
	Weight              float64 `json:"weight"`
	MaterialComposition string  `json:"materialComposition"`
	BatteryIncluded     string  `json:"batteryIncluded"`
	VisibleDamage       string  `json:"visibleDamage"`
	ScreenCondition     string  `json:"screenCondition"`
	RustPresence        string  `json:"rustPresence"`
	WiringCondition     string  `json:"wiringCondition"`
	ResalePotential     string  `json:"resalePotential"`
}

type response struct {
	ScrapPrice  *float64 `json:"scrapPrice"`
	RepairCost  *float64 `json:"repairCost"`
	FinalAmount *float64 `json:"finalAmount"`
	Error       string   `json:"error"`
}

// UpstreamError is a non-2xx answer from the scoring service.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("prediction service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("prediction service returned status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("prediction"),
	}
}

func (c *Client) Predict(ctx context.Context, attrs models.ApplianceAttributes) (*models.PredictionResult, error) {
	start := time.Now()
	result, err := c.predict(ctx, attrs)
	metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PredictionCalls.WithLabelValues(metrics.OutcomeError).Inc()
		c.logger.Warn("prediction failed",
			zap.String("itemType", attrs.ItemType),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	metrics.PredictionCalls.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.logger.Debug("prediction received",
		zap.String("itemType", attrs.ItemType),
		zap.Float64("finalAmount", result.FinalAmount),
	)
	return result, nil
}

func (c *Client) predict(ctx context.Context, attrs models.ApplianceAttributes) (*models.PredictionResult, error) {
	body, err := json.Marshal(toPayload(attrs))
	if err != nil {
		return nil, fmt.Errorf("marshal prediction payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call prediction service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read prediction response: %w", err)
	}

	var decoded response
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := decoded.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode prediction response: %w", decodeErr)
	}
	if decoded.ScrapPrice == nil || decoded.RepairCost == nil || decoded.FinalAmount == nil {
		return nil, fmt.Errorf("prediction response is missing price fields")
	}

	return &models.PredictionResult{
		ScrapPrice:  *decoded.ScrapPrice,
		RepairCost:  *decoded.RepairCost,
		FinalAmount: *decoded.FinalAmount,
	}, nil
}

func toPayload(a models.ApplianceAttributes) payload {
	p := payload{
		ItemType:            a.ItemType,
		Brand:               a.Brand,
		Condition:           a.Condition,
		MaterialComposition: a.MaterialComposition.String(),
		BatteryIncluded:     a.BatteryIncluded,
		VisibleDamage:       a.VisibleDamage,
		ScreenCondition:     a.ScreenCondition,
		RustPresence:        a.RustPresence,
		WiringCondition:     a.WiringCondition,
		ResalePotential:     a.ResalePotential,
	}
	if a.Age != nil {
		p.Age = *a.Age
	}
	if a.Weight != nil {
		p.Weight = *a.Weight
	}
	return p
}

// SuggestedAmount formats a predicted final amount the way collectors enter
// amounts: two decimals, rounded half away from zero.
func SuggestedAmount(r *models.PredictionResult) string {
	if r == nil {
		return ""
	}
	return decimal.NewFromFloat(r.FinalAmount).StringFixed(2)
}

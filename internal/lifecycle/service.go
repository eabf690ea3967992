package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pickup-backend/internal/events"
	"pickup-backend/internal/metrics"
	"pickup-backend/internal/models"
	"pickup-backend/internal/xerrors"
)

const (
	storeTimeout      = 5 * time.Second
	sideEffectTimeout = 2 * time.Second
)

// CreateInput carries the dispatcher-supplied fields of a new request.
type CreateInput struct {
	CustomerName string
	Phone        string
	ItemDetails  string
	Address      string
	PickupDate   string
	PickupTime   string
	AssignedTo   string
}

// Patch is a collector's update. Nil fields keep the stored value.
// At most one of VerificationResponses and Appliance may be set.
type Patch struct {
	Amount                *string
	IsPaid                *bool
	IsCollected           *bool
	VerificationResponses map[string]string
	Appliance             *models.ApplianceAttributes
	PredictionResult      *models.PredictionResult
}

type Service struct {
	store     RequestStore
	accounts  AccountChecker
	predictor Predictor
	publisher EventPublisher
	cache     ListingCache
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the lifecycle. publisher and cache may be nil.
func NewService(store RequestStore, accounts AccountChecker, predictor Predictor, publisher EventPublisher, cache ListingCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		accounts:  accounts,
		predictor: predictor,
		publisher: publisher,
		cache:     cache,
		logger:    logger.Named("lifecycle"),
		now:       time.Now,
	}
}

func (s *Service) CreateRequest(ctx context.Context, in CreateInput) (*models.PickupRequest, error) {
	defer observe("create", time.Now())

	fields := []struct {
		name  string
		value *string
	}{
		{"customerName", &in.CustomerName},
		{"phone", &in.Phone},
		{"itemDetails", &in.ItemDetails},
		{"address", &in.Address},
		{"pickupDate", &in.PickupDate},
		{"pickupTime", &in.PickupTime},
		{"assignedTo", &in.AssignedTo},
	}
	var missing []string
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, s.fail("create", xerrors.MissingFields(missing))
	}

	assignee, err := primitive.ObjectIDFromHex(in.AssignedTo)
	if err != nil {
		return nil, s.fail("create", xerrors.Validation("invalid assignedTo", "assignedTo is invalid"))
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	exists, err := s.accounts.Exists(storeCtx, assignee)
	if err != nil {
		return nil, s.fail("create", fmt.Errorf("check assignee: %w", err))
	}
	if !exists {
		return nil, s.fail("create", xerrors.Validation("invalid assignedTo", "assignedTo does not reference an existing account"))
	}

	now := s.now().UTC()
	stored, err := s.store.Insert(storeCtx, &models.PickupRequest{
		CustomerName: in.CustomerName,
		Phone:        in.Phone,
		ItemDetails:  in.ItemDetails,
		Address:      in.Address,
		PickupDate:   in.PickupDate,
		PickupTime:   in.PickupTime,
		Status:       models.StatusPending,
		AssignedTo:   assignee,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, s.fail("create", fmt.Errorf("insert request: %w", err))
	}

	s.logger.Info("request created", zap.String("requestId", stored.ID.Hex()), zap.String("assignedTo", assignee.Hex()))
	s.afterWrite(ctx, events.TypeRequestCreated, stored)
	metrics.RequestOperations.WithLabelValues("create", metrics.OutcomeSuccess).Inc()
	return stored, nil
}

// ListForAssignee returns the requests assigned to accountID. Paging applies
// only when both page and limit are set.
func (s *Service) ListForAssignee(ctx context.Context, accountID string, page models.Page) ([]models.PickupRequest, error) {
	defer observe("list", time.Now())

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, s.fail("list", xerrors.MissingFields([]string{"accountId"}))
	}
	assignee, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, s.fail("list", xerrors.Validation("invalid accountId", "accountId is invalid"))
	}

	key, cacheable := s.listingKey(ctx, assignee, page)
	if cacheable {
		if cached, ok := s.cachedListing(ctx, key); ok {
			metrics.RequestOperations.WithLabelValues("list", metrics.OutcomeSuccess).Inc()
			return cached, nil
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	list, err := s.store.FindByAssignee(storeCtx, assignee, page)
	if err != nil {
		return nil, s.fail("list", fmt.Errorf("find by assignee: %w", err))
	}
	if list == nil {
		list = []models.PickupRequest{}
	}

	if cacheable {
		s.storeListing(ctx, key, list)
	}
	metrics.RequestOperations.WithLabelValues("list", metrics.OutcomeSuccess).Inc()
	return list, nil
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (*models.PickupRequest, error) {
	id, err := parseRequestID(requestID)
	if err != nil {
		return nil, s.fail("get", err)
	}
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	r, err := s.load(storeCtx, id)
	if err != nil {
		return nil, s.fail("get", err)
	}
	return r, nil
}

// UpdateRequest merges patch into the stored request, derives its status and
// regenerates the report. It never calls the predictor.
func (s *Service) UpdateRequest(ctx context.Context, requestID string, patch Patch) (*models.PickupRequest, error) {
	defer observe("update", time.Now())

	id, err := parseRequestID(requestID)
	if err != nil {
		return nil, s.fail("update", err)
	}

	assessment, err := models.NewAssessment(patch.VerificationResponses, patch.Appliance)
	if err != nil {
		return nil, s.fail("update", xerrors.Validation(err.Error()))
	}
	if assessment != nil && assessment.Kind == models.AssessmentAppliance {
		if problems := assessment.Appliance.Problems(); len(problems) > 0 {
			return nil, s.fail("update", xerrors.Validation("invalid appliance assessment", problems...))
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	r, err := s.load(storeCtx, id)
	if err != nil {
		return nil, s.fail("update", err)
	}

	if patch.Amount != nil {
		r.Amount = strings.TrimSpace(*patch.Amount)
	}
	if patch.IsPaid != nil {
		r.IsPaid = *patch.IsPaid
	}
	if patch.IsCollected != nil {
		r.IsCollected = *patch.IsCollected
	}
	if assessment != nil {
		// An estimate only describes the appliance it was made for.
		if r.Assessment != nil && r.Assessment.Kind != assessment.Kind && patch.PredictionResult == nil {
			r.PredictionResult = nil
		}
		r.Assessment = assessment
	}
	if patch.PredictionResult != nil {
		p := *patch.PredictionResult
		r.PredictionResult = &p
	}

	now := s.now().UTC()
	previous := r.Status
	r.Status = NextStatus(r.IsPaid, r.IsCollected)
	r.Report = BuildReport(r, now)
	r.UpdatedAt = now

	if err := s.replace(storeCtx, r); err != nil {
		return nil, s.fail("update", err)
	}

	s.logger.Info("request updated",
		zap.String("requestId", r.ID.Hex()),
		zap.String("from", string(previous)),
		zap.String("to", string(r.Status)),
		zap.String("reportId", r.Report.ReportID),
	)
	metrics.StatusTransitions.WithLabelValues(string(r.Status)).Inc()
	eventType := events.TypeRequestUpdated
	if r.Status == models.StatusCompleted {
		eventType = events.TypeRequestCompleted
	}
	s.afterWrite(ctx, eventType, r)
	metrics.RequestOperations.WithLabelValues("update", metrics.OutcomeSuccess).Inc()
	return r, nil
}

// RequestPricePrediction asks the predictor for an estimate of an appliance
// assessment and returns it unchanged.
func (s *Service) RequestPricePrediction(ctx context.Context, assessment *models.Assessment) (*models.PredictionResult, error) {
	defer observe("predict", time.Now())

	if assessment == nil || assessment.Kind != models.AssessmentAppliance || assessment.Appliance == nil {
		return nil, s.fail("predict", xerrors.Validation("price prediction requires appliance attributes"))
	}
	if problems := assessment.Appliance.Problems(); len(problems) > 0 {
		return nil, s.fail("predict", xerrors.Validation("invalid appliance assessment", problems...))
	}

	result, err := s.predictor.Predict(ctx, *assessment.Appliance)
	if err != nil {
		return nil, s.fail("predict", xerrors.Upstream("price prediction failed", err))
	}
	metrics.RequestOperations.WithLabelValues("predict", metrics.OutcomeSuccess).Inc()
	return result, nil
}

// PredictForRequest prices the appliance and stores the assessment and
// estimate on the request. Payment, collection, status and report are left
// alone, and a failed prediction leaves the record untouched.
func (s *Service) PredictForRequest(ctx context.Context, requestID string, appliance models.ApplianceAttributes) (*models.PickupRequest, error) {
	id, err := parseRequestID(requestID)
	if err != nil {
		return nil, s.fail("predict_attach", err)
	}

	assessment, _ := models.NewAssessment(nil, &appliance)

	loadCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	r, err := s.load(loadCtx, id)
	cancel()
	if err != nil {
		return nil, s.fail("predict_attach", err)
	}

	result, err := s.RequestPricePrediction(ctx, assessment)
	if err != nil {
		return nil, err
	}

	r.Assessment = assessment
	r.PredictionResult = result
	r.UpdatedAt = s.now().UTC()

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.replace(storeCtx, r); err != nil {
		return nil, s.fail("predict_attach", err)
	}

	s.logger.Info("prediction attached", zap.String("requestId", r.ID.Hex()), zap.Float64("finalAmount", result.FinalAmount))
	s.afterWrite(ctx, events.TypeRequestUpdated, r)
	metrics.RequestOperations.WithLabelValues("predict_attach", metrics.OutcomeSuccess).Inc()
	return r, nil
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (*models.PickupRequest, error) {
	r, err := s.store.FindByID(ctx, id)
	if errors.Is(err, xerrors.ErrNoDocument) {
		return nil, xerrors.NotFound("request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find request: %w", err)
	}
	return r, nil
}

func (s *Service) replace(ctx context.Context, r *models.PickupRequest) error {
	err := s.store.Replace(ctx, r)
	if errors.Is(err, xerrors.ErrNoDocument) {
		return xerrors.NotFound("request not found")
	}
	if err != nil {
		return fmt.Errorf("replace request: %w", err)
	}
	return nil
}

// afterWrite runs the best-effort side effects of a successful write. They
// outlive the caller's context: the write is already stored.
func (s *Service) afterWrite(ctx context.Context, eventType string, r *models.PickupRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Bump(ctx, generationKey(r.AssignedTo)); err != nil {
			s.logger.Warn("listing cache invalidation failed", zap.String("assignedTo", r.AssignedTo.Hex()), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewRequestEvent(eventType, r, s.now())); err != nil {
			s.logger.Warn("event publish failed", zap.String("type", eventType), zap.String("requestId", r.ID.Hex()), zap.Error(err))
		}
	}
}

func (s *Service) cachedListing(ctx context.Context, key string) ([]models.PickupRequest, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil || data == nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	var list []models.PickupRequest
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("discarding unreadable cached listing", zap.String("key", key), zap.Error(err))
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if list == nil {
		list = []models.PickupRequest{}
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return list, true
}

func (s *Service) storeListing(ctx context.Context, key string, list []models.PickupRequest) {
	data, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.Warn("listing cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) fail(operation string, err error) error {
	metrics.RequestOperations.WithLabelValues(operation, metrics.OutcomeError).Inc()
	if xerrors.KindOf(err) == "" {
		s.logger.Error("operation failed", zap.String("operation", operation), zap.Error(err))
	}
	return err
}

func parseRequestID(raw string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, xerrors.MissingFields([]string{"requestId"})
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, xerrors.Validation("invalid requestId", "requestId is invalid")
	}
	return id, nil
}

func generationKey(assignee primitive.ObjectID) string {
	return "requests:generation:" + assignee.Hex()
}

// listingKey reports false when there is no cache or its generation cannot
// be read; the listing then bypasses the cache entirely.
func (s *Service) listingKey(ctx context.Context, assignee primitive.ObjectID, page models.Page) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, err := s.cache.Generation(ctx, generationKey(assignee))
	if err != nil {
		s.logger.Warn("listing cache generation unavailable", zap.String("assignedTo", assignee.Hex()), zap.Error(err))
		return "", false
	}
	prefix := fmt.Sprintf("requests:assignee:%s:g%d:", assignee.Hex(), gen)
	if !page.Enabled() {
		return prefix + "all", true
	}
	return fmt.Sprintf("%sp%d:l%d", prefix, page.Page, page.Limit), true
}

func observe(operation string, start time.Time) {
	metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/common"
	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/models"
	"github.com/ternarybob/steward/internal/queue"
)

// Service implements SubmissionService. It accepts maintenance
// requests, dispatches async classification jobs, and tracks job
// status.
type Service struct {
	storage    interfaces.StorageManager
	queueMgr   *queue.Manager
	classifier interfaces.Classifier
	events     interfaces.EventService
	mailer     interfaces.MailerService
	validate   *validator.Validate
	logger     arbor.ILogger
}

// NewService creates a new submission service. mailer may be nil.
func NewService(storage interfaces.StorageManager, queueMgr *queue.Manager, classifier interfaces.Classifier, events interfaces.EventService, mailer interfaces.MailerService, logger arbor.ILogger) interfaces.SubmissionService {
	return &Service{
		storage:    storage,
		queueMgr:   queueMgr,
		classifier: classifier,
		events:     events,
		mailer:     mailer,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Submit accepts a new maintenance request. Async mode inserts a
// placeholder record and dispatches a classification job; sync mode
// classifies inline before inserting.
func (s *Service) Submit(ctx context.Context, input *interfaces.SubmitInput) (*models.Request, error) {
	if input == nil {
		return nil, fmt.Errorf("submission is required: %w", models.ErrValidation)
	}

	input.Description = strings.TrimSpace(input.Description)
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid submission: %v: %w", err, models.ErrValidation)
	}

	mode := input.Mode
	if mode == "" {
		mode = models.ModeAsync
	}
	if mode != models.ModeAsync && mode != models.ModeSync {
		return nil, fmt.Errorf("unknown mode %q: %w", input.Mode, models.ErrValidation)
	}

	now := time.Now()
	request := &models.Request{
		ID:          common.NewRequestID(),
		OwnerID:     input.OwnerID,
		Description: input.Description,
		Status:      models.StatusPending,
		Location:    input.Location,
		ContactInfo: input.ContactInfo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if mode == models.ModeSync {
		return s.submitSync(ctx, request)
	}
	return s.submitAsync(ctx, request)
}

// submitAsync inserts a placeholder record and dispatches a
// classification job. No remote classification call happens before
// returning.
func (s *Service) submitAsync(ctx context.Context, request *models.Request) (*models.Request, error) {
	request.Category = models.CategoryProcessing
	request.Priority = models.PriorityProcessing

	if err := s.storage.RequestStorage().SaveRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to insert request: %w", err)
	}

	msg := models.ClassifyMessage{
		RequestID:   request.ID,
		Description: request.Description,
	}
	body, err := queue.MarshalClassifyMessage(&msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job payload: %w", err)
	}

	jobID, err := s.queueMgr.Enqueue(ctx, body)
	if err != nil {
		// The record stays pending/processing without a job id; the
		// submitter sees a failed submission and retries.
		s.logger.Error().Err(err).Str("request_id", request.ID).Msg("Failed to enqueue classification job")
		return nil, fmt.Errorf("%v: %w", err, models.ErrQueueDispatch)
	}

	job := &models.ClassificationJob{
		ID:        jobID,
		RequestID: request.ID,
		State:     models.JobStateQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to save job status record")
	}

	// Field-scoped write: a worker may have already classified the
	// record, so never write the placeholder snapshot back.
	if err := s.storage.RequestStorage().SetJobID(ctx, request.ID, jobID); err != nil {
		return nil, fmt.Errorf("failed to store job id on request: %w", err)
	}
	request.JobID = jobID
	request.UpdatedAt = time.Now()

	s.publishRecordEvent(ctx, models.EventNewRequest, request)

	s.logger.Info().
		Str("request_id", request.ID).
		Str("job_id", jobID).
		Msg("Request submitted for async classification")

	return request, nil
}

// submitSync classifies inline and inserts a resolved record
func (s *Service) submitSync(ctx context.Context, request *models.Request) (*models.Request, error) {
	result := s.classifier.Classify(ctx, request.Description, models.PolicyStandard)
	request.Category = result.Category
	request.Priority = result.Priority

	if err := s.storage.RequestStorage().SaveRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to insert request: %w", err)
	}

	s.publishRecordEvent(ctx, models.EventNewRequest, request)

	s.logger.Info().
		Str("request_id", request.ID).
		Str("category", string(request.Category)).
		Str("priority", string(request.Priority)).
		Msg("Request submitted with sync classification")

	return request, nil
}

// GetStatus reports the state of a classification job
func (s *Service) GetStatus(ctx context.Context, jobID string) (*models.JobStatus, error) {
	job, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	status := &models.JobStatus{
		JobID: job.ID,
		State: job.State,
	}
	// Result is populated only for terminal states
	if models.TerminalState(job.State) {
		status.Result = job.Result
	}
	return status, nil
}

// Update applies the fields present in patch and publishes request_updated
func (s *Service) Update(ctx context.Context, requestID string, patch *interfaces.RequestPatch) (*models.Request, error) {
	if patch == nil || (patch.Status == nil && patch.Category == nil && patch.Priority == nil) {
		return nil, fmt.Errorf("no fields to update: %w", models.ErrValidation)
	}

	request, err := s.storage.RequestStorage().GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	statusChanged := false
	if patch.Status != nil {
		if !models.ValidStatus(*patch.Status) {
			return nil, fmt.Errorf("unknown status %q: %w", *patch.Status, models.ErrValidation)
		}
		statusChanged = request.Status != *patch.Status
		request.Status = *patch.Status
	}
	if patch.Category != nil {
		if !models.ValidCategory(*patch.Category) {
			return nil, fmt.Errorf("unknown category %q: %w", *patch.Category, models.ErrValidation)
		}
		request.Category = *patch.Category
	}
	if patch.Priority != nil {
		if !models.ValidPriority(*patch.Priority) {
			return nil, fmt.Errorf("unknown priority %q: %w", *patch.Priority, models.ErrValidation)
		}
		request.Priority = *patch.Priority
	}
	request.UpdatedAt = time.Now()

	if err := s.storage.RequestStorage().SaveRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}

	s.publishRecordEvent(ctx, models.EventRequestUpdated, request)

	if statusChanged && s.mailer != nil {
		// Best-effort; never blocks or fails the update
		go func(snapshot models.Request) {
			notifyCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := s.mailer.NotifyStatusChange(notifyCtx, &snapshot); err != nil {
				s.logger.Warn().Err(err).Str("request_id", snapshot.ID).Msg("Status change notification failed")
			}
		}(*request)
	}

	return request, nil
}

// Delete removes a request record
func (s *Service) Delete(ctx context.Context, requestID string) error {
	return s.storage.RequestStorage().DeleteRequest(ctx, requestID)
}

// Reclassify re-runs classification using the legacy urgent-capable
// priority vocabulary and persists the result.
func (s *Service) Reclassify(ctx context.Context, requestID string) (*models.Request, error) {
	request, err := s.storage.RequestStorage().GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	result := s.classifier.Classify(ctx, request.Description, models.PolicyLegacy)
	request.Category = result.Category
	request.Priority = result.Priority
	request.UpdatedAt = time.Now()

	if err := s.storage.RequestStorage().SaveRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save reclassified request: %w", err)
	}

	s.publishRecordEvent(ctx, models.EventRequestUpdated, request)

	return request, nil
}

// publishRecordEvent publishes a record snapshot synchronously so that
// per-request event ordering is preserved. Failures are logged and
// swallowed - broadcasts never surface to callers.
func (s *Service) publishRecordEvent(ctx context.Context, eventType models.EventType, request *models.Request) {
	snapshot := *request
	if err := s.events.PublishSync(ctx, models.Event{Type: eventType, Payload: &snapshot}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Str("request_id", request.ID).Msg("Event publish failed")
	}
}

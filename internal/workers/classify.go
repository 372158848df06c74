package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/models"
	"github.com/ternarybob/steward/internal/queue"
)

// ClassifyWorker processes classification jobs pulled from the queue.
// Its effect is idempotent: redelivering a job overwrites
// category/priority with the same values and leaves status untouched.
type ClassifyWorker struct {
	storage    interfaces.StorageManager
	classifier interfaces.Classifier
	events     interfaces.EventService
	logger     arbor.ILogger
}

// NewClassifyWorker creates a classification worker
func NewClassifyWorker(storage interfaces.StorageManager, classifier interfaces.Classifier, events interfaces.EventService, logger arbor.ILogger) *ClassifyWorker {
	return &ClassifyWorker{
		storage:    storage,
		classifier: classifier,
		events:     events,
		logger:     logger,
	}
}

// Handle processes one queue message. Returning nil acknowledges the
// message; returning an error leaves it for redelivery.
func (w *ClassifyWorker) Handle(ctx context.Context, msg *models.QueueMessage) error {
	payload, err := queue.UnmarshalClassifyMessage(msg.Body)
	if err != nil {
		// Malformed payloads can never succeed; acknowledge and log
		w.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Dropping malformed classification message")
		return nil
	}

	jobID := msg.ID

	job, err := w.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("failed to load job %s: %w", jobID, err)
		}
		// Job record missing (enqueue succeeded but the status write
		// failed); recreate it so tracking works.
		job = &models.ClassificationJob{
			ID:        jobID,
			RequestID: payload.RequestID,
			State:     models.JobStateQueued,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
	}

	// Redelivery of an already-finished job is a no-op
	if models.TerminalState(job.State) {
		w.logger.Debug().Str("job_id", jobID).Str("state", string(job.State)).Msg("Job already terminal, acknowledging redelivery")
		return nil
	}

	job.State = models.JobStateStarted
	job.UpdatedAt = time.Now()
	if err := w.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job started: %w", err)
	}

	if err := w.classify(ctx, job, payload); err != nil {
		// Guarded fail-safe: record the failure, persist a default
		// classification so the record never stays stuck at
		// "processing", and still broadcast.
		w.logger.Error().Err(err).Str("job_id", jobID).Str("request_id", payload.RequestID).Msg("Classification job failed")

		job.State = models.JobStateFailed
		job.Error = err.Error()
		job.Result = &models.Classification{
			Category: models.CategoryOther,
			Priority: models.PriorityMedium,
		}
		job.UpdatedAt = time.Now()
		if saveErr := w.storage.JobStorage().SaveJob(ctx, job); saveErr != nil {
			w.logger.Warn().Err(saveErr).Str("job_id", jobID).Msg("Failed to mark job failed")
		}

		w.persistClassification(ctx, payload.RequestID, *job.Result)
	}

	return nil
}

// HandleDrop finalizes a job whose message exhausted its redelivery
// budget. The queue has already removed the message, so this is the
// last chance to move the record off the processing placeholder.
func (w *ClassifyWorker) HandleDrop(ctx context.Context, msg *models.QueueMessage) {
	payload, err := queue.UnmarshalClassifyMessage(msg.Body)
	if err != nil {
		w.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Dropped message has malformed payload")
		return
	}

	jobID := msg.ID

	job, err := w.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		job = &models.ClassificationJob{
			ID:        jobID,
			RequestID: payload.RequestID,
			CreatedAt: time.Now(),
		}
	}
	if models.TerminalState(job.State) {
		return
	}

	w.logger.Error().
		Str("job_id", jobID).
		Str("request_id", payload.RequestID).
		Int("receive_count", msg.ReceiveCount).
		Msg("Classification job exhausted redelivery budget")

	job.State = models.JobStateFailed
	job.Error = "redelivery budget exhausted"
	job.Result = &models.Classification{
		Category: models.CategoryOther,
		Priority: models.PriorityMedium,
	}
	job.UpdatedAt = time.Now()
	if saveErr := w.storage.JobStorage().SaveJob(ctx, job); saveErr != nil {
		w.logger.Warn().Err(saveErr).Str("job_id", jobID).Msg("Failed to mark dropped job failed")
	}

	w.persistClassification(ctx, payload.RequestID, *job.Result)
}

// classify runs the classifier and persists the result
func (w *ClassifyWorker) classify(ctx context.Context, job *models.ClassificationJob, payload *models.ClassifyMessage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("job context expired before classification: %w", err)
	}

	result := w.classifier.Classify(ctx, payload.Description, models.PolicyStandard)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("job exceeded execution ceiling: %w", err)
	}

	request, err := w.storage.RequestStorage().GetRequest(ctx, payload.RequestID)
	if err != nil {
		return fmt.Errorf("failed to load request: %w", err)
	}

	// Only category/priority change; status transitions are
	// externally triggered, never performed here.
	request.Category = result.Category
	request.Priority = result.Priority
	request.UpdatedAt = time.Now()
	if err := w.storage.RequestStorage().SaveRequest(ctx, request); err != nil {
		return fmt.Errorf("failed to persist classification: %w", err)
	}

	job.State = models.JobStateSucceeded
	job.Result = &result
	job.Error = ""
	job.UpdatedAt = time.Now()
	if err := w.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job succeeded: %w", err)
	}

	w.broadcast(ctx, request)

	w.logger.Info().
		Str("job_id", job.ID).
		Str("request_id", request.ID).
		Str("category", string(result.Category)).
		Str("priority", string(result.Priority)).
		Msg("Classification job completed")

	return nil
}

// persistClassification writes a best-effort classification to the
// record and broadcasts, used on the failure path.
func (w *ClassifyWorker) persistClassification(ctx context.Context, requestID string, result models.Classification) {
	request, err := w.storage.RequestStorage().GetRequest(ctx, requestID)
	if err != nil {
		w.logger.Warn().Err(err).Str("request_id", requestID).Msg("Failed to load request for default classification")
		return
	}

	request.Category = result.Category
	request.Priority = result.Priority
	request.UpdatedAt = time.Now()
	if err := w.storage.RequestStorage().SaveRequest(ctx, request); err != nil {
		w.logger.Warn().Err(err).Str("request_id", requestID).Msg("Failed to persist default classification")
		return
	}

	w.broadcast(ctx, request)
}

// broadcast publishes request_updated with the full record snapshot.
// Failures are logged and swallowed.
func (w *ClassifyWorker) broadcast(ctx context.Context, request *models.Request) {
	snapshot := *request
	if err := w.events.PublishSync(ctx, models.Event{Type: models.EventRequestUpdated, Payload: &snapshot}); err != nil {
		w.logger.Warn().Err(err).Str("request_id", request.ID).Msg("Failed to publish request_updated")
	}
}

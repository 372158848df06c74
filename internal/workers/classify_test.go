package workers

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/common"
	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/models"
	"github.com/ternarybob/steward/internal/queue"
	"github.com/ternarybob/steward/internal/services/events"
	badgerstorage "github.com/ternarybob/steward/internal/storage/badger"
)

type stubClassifier struct {
	mu     sync.Mutex
	result models.Classification
	calls  int
}

func (s *stubClassifier) Classify(ctx context.Context, description string, policy models.ClassifyPolicy) models.Classification {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result
}

type workerFixture struct {
	storage    interfaces.StorageManager
	classifier *stubClassifier
	events     interfaces.EventService
	worker     *ClassifyWorker

	mu      sync.Mutex
	updates []*models.Request
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	logger := arbor.NewLogger()

	storage, err := badgerstorage.NewManager(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "steward-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	classifier := &stubClassifier{result: models.Classification{
		Category: models.CategoryPlumbing,
		Priority: models.PriorityHigh,
	}}
	eventService := events.NewService(logger)
	t.Cleanup(func() { eventService.Close() })

	f := &workerFixture{
		storage:    storage,
		classifier: classifier,
		events:     eventService,
		worker:     NewClassifyWorker(storage, classifier, eventService, logger),
	}

	require.NoError(t, eventService.Subscribe(models.EventRequestUpdated, func(ctx context.Context, event models.Event) error {
		request, _ := event.Payload.(*models.Request)
		f.mu.Lock()
		f.updates = append(f.updates, request)
		f.mu.Unlock()
		return nil
	}))

	return f
}

func (f *workerFixture) broadcasts() []*models.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Request(nil), f.updates...)
}

// seedRequest stores a placeholder record the way async submission does
func (f *workerFixture) seedRequest(t *testing.T, id string) *models.Request {
	t.Helper()
	request := &models.Request{
		ID:          id,
		OwnerID:     "user_1",
		Description: "water leaking under the sink",
		Category:    models.CategoryProcessing,
		Priority:    models.PriorityProcessing,
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, f.storage.RequestStorage().SaveRequest(context.Background(), request))
	return request
}

func classifyMessage(t *testing.T, jobID, requestID string) *models.QueueMessage {
	t.Helper()
	body, err := queue.MarshalClassifyMessage(&models.ClassifyMessage{
		RequestID:   requestID,
		Description: "water leaking under the sink",
	})
	require.NoError(t, err)
	return &models.QueueMessage{ID: jobID, Body: body, ReceiveCount: 1}
}

func TestHandle_Success(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	f.seedRequest(t, "req_1")
	require.NoError(t, f.storage.JobStorage().SaveJob(ctx, &models.ClassificationJob{
		ID:        "job_1",
		RequestID: "req_1",
		State:     models.JobStateQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}))

	require.NoError(t, f.worker.Handle(ctx, classifyMessage(t, "job_1", "req_1")))

	// Record carries the classification; status is untouched
	request, err := f.storage.RequestStorage().GetRequest(ctx, "req_1")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryPlumbing, request.Category)
	assert.Equal(t, models.PriorityHigh, request.Priority)
	assert.Equal(t, models.StatusPending, request.Status)

	job, err := f.storage.JobStorage().GetJob(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStateSucceeded, job.State)
	require.NotNil(t, job.Result)
	assert.Equal(t, models.CategoryPlumbing, job.Result.Category)

	updates := f.broadcasts()
	require.Len(t, updates, 1)
	assert.Equal(t, "req_1", updates[0].ID)
	assert.Equal(t, models.CategoryPlumbing, updates[0].Category)
}

func TestHandle_RecreatesMissingJobRecord(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	f.seedRequest(t, "req_1")

	// No job record was stored (enqueue succeeded, status write lost)
	require.NoError(t, f.worker.Handle(ctx, classifyMessage(t, "job_1", "req_1")))

	job, err := f.storage.JobStorage().GetJob(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStateSucceeded, job.State)
	assert.Equal(t, "req_1", job.RequestID)
}

func TestHandle_TerminalJobRedeliveryIsNoOp(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	f.seedRequest(t, "req_1")
	require.NoError(t, f.storage.JobStorage().SaveJob(ctx, &models.ClassificationJob{
		ID:        "job_1",
		RequestID: "req_1",
		State:     models.JobStateSucceeded,
		Result:    &models.Classification{Category: models.CategoryPlumbing, Priority: models.PriorityHigh},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}))

	require.NoError(t, f.worker.Handle(ctx, classifyMessage(t, "job_1", "req_1")))

	assert.Equal(t, 0, f.classifier.calls)
	assert.Empty(t, f.broadcasts())
}

func TestHandle_MissingRequestFailsSafe(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	// Request record does not exist; classification cannot be persisted
	err := f.worker.Handle(ctx, classifyMessage(t, "job_1", "req_ghost"))
	require.NoError(t, err) // Acknowledged, not retried forever

	job, jobErr := f.storage.JobStorage().GetJob(ctx, "job_1")
	require.NoError(t, jobErr)
	assert.Equal(t, models.JobStateFailed, job.State)
	assert.NotEmpty(t, job.Error)
	require.NotNil(t, job.Result)
	assert.Equal(t, models.CategoryOther, job.Result.Category)
	assert.Equal(t, models.PriorityMedium, job.Result.Priority)
}

func TestHandleDrop_FinalizesExhaustedJob(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	f.seedRequest(t, "req_1")
	require.NoError(t, f.storage.JobStorage().SaveJob(ctx, &models.ClassificationJob{
		ID:        "job_1",
		RequestID: "req_1",
		State:     models.JobStateStarted,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}))

	f.worker.HandleDrop(ctx, classifyMessage(t, "job_1", "req_1"))

	// Job is terminal with the default classification recorded
	job, err := f.storage.JobStorage().GetJob(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStateFailed, job.State)
	assert.NotEmpty(t, job.Error)
	require.NotNil(t, job.Result)
	assert.Equal(t, models.CategoryOther, job.Result.Category)
	assert.Equal(t, models.PriorityMedium, job.Result.Priority)

	// The record is moved off the processing placeholder and broadcast
	request, err := f.storage.RequestStorage().GetRequest(ctx, "req_1")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryOther, request.Category)
	assert.Equal(t, models.PriorityMedium, request.Priority)
	assert.Equal(t, models.StatusPending, request.Status)

	updates := f.broadcasts()
	require.Len(t, updates, 1)
	assert.Equal(t, "req_1", updates[0].ID)
}

func TestHandleDrop_TerminalJobIsNoOp(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	f.seedRequest(t, "req_1")
	require.NoError(t, f.storage.JobStorage().SaveJob(ctx, &models.ClassificationJob{
		ID:        "job_1",
		RequestID: "req_1",
		State:     models.JobStateSucceeded,
		Result:    &models.Classification{Category: models.CategoryPlumbing, Priority: models.PriorityHigh},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}))

	f.worker.HandleDrop(ctx, classifyMessage(t, "job_1", "req_1"))

	job, err := f.storage.JobStorage().GetJob(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStateSucceeded, job.State)
	assert.Empty(t, f.broadcasts())
}

func TestHandle_MalformedPayloadAcknowledged(t *testing.T) {
	f := newWorkerFixture(t)

	msg := &models.QueueMessage{ID: "job_bad", Body: []byte("not json"), ReceiveCount: 1}
	require.NoError(t, f.worker.Handle(context.Background(), msg))

	_, err := f.storage.JobStorage().GetJob(context.Background(), "job_bad")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

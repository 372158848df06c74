package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/steward/internal/models"
)

// RequestListOptions filters and pages request listings
type RequestListOptions struct {
	Status   models.Status
	Category models.Category
	OwnerID  string
	Limit    int
	Offset   int
}

// RequestStorage persists maintenance request records
type RequestStorage interface {
	SaveRequest(ctx context.Context, request *models.Request) error
	// SetJobID stores the dispatched job id on a request without
	// rewriting the rest of the record, so a concurrently persisted
	// classification is never clobbered.
	SetJobID(ctx context.Context, requestID, jobID string) error
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	DeleteRequest(ctx context.Context, id string) error
	ListRequests(ctx context.Context, opts *RequestListOptions) ([]*models.Request, error)
	CountStats(ctx context.Context) (*models.RequestStats, error)
	// DeleteCompletedBefore removes completed requests last updated
	// before cutoff and returns the number removed.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// JobStorage persists classification job status records
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.ClassificationJob) error
	GetJob(ctx context.Context, jobID string) (*models.ClassificationJob, error)
	GetJobByRequestID(ctx context.Context, requestID string) (*models.ClassificationJob, error)
}

// TokenStorage persists bearer tokens
type TokenStorage interface {
	SaveToken(ctx context.Context, token *models.AuthToken) error
	GetToken(ctx context.Context, token string) (*models.AuthToken, error)
	DeleteToken(ctx context.Context, token string) error
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	RequestStorage() RequestStorage
	JobStorage() JobStorage
	TokenStorage() TokenStorage
	DB() interface{}
	Close() error
}

package interfaces

import (
	"context"

	"github.com/ternarybob/steward/internal/models"
)

// EventHandler processes a published event
type EventHandler func(ctx context.Context, event models.Event) error

// EventService provides internal pub/sub between services and the
// websocket broadcaster
type EventService interface {
	Subscribe(eventType models.EventType, handler EventHandler) error
	// Publish fans out asynchronously; delivery order across calls is
	// not guaranteed.
	Publish(ctx context.Context, event models.Event) error
	// PublishSync blocks until every handler has run. Used where
	// per-record event ordering matters.
	PublishSync(ctx context.Context, event models.Event) error
	Close() error
}

// Classifier assigns a category and priority to a request
// description. Classify is total: it always returns a usable
// classification, falling back to deterministic keyword matching when
// remote inference fails.
type Classifier interface {
	Classify(ctx context.Context, description string, policy models.ClassifyPolicy) models.Classification
}

// SubmitInput carries a new maintenance request submission
type SubmitInput struct {
	Description string           `json:"description" validate:"required,min=1"`
	Location    string           `json:"location,omitempty"`
	ContactInfo string           `json:"contact_info,omitempty"`
	Mode        models.SubmitMode `json:"mode,omitempty"`
	OwnerID     string           `json:"-"`
}

// SubmissionService accepts maintenance requests and tracks their
// classification jobs
type SubmissionService interface {
	Submit(ctx context.Context, input *SubmitInput) (*models.Request, error)
	// GetStatus reports the state of a classification job. Returns
	// ErrNotFound for unknown job ids.
	GetStatus(ctx context.Context, jobID string) (*models.JobStatus, error)
	// Update applies the fields present in patch and publishes
	// request_updated.
	Update(ctx context.Context, requestID string, patch *RequestPatch) (*models.Request, error)
	// Delete removes a request record.
	Delete(ctx context.Context, requestID string) error
	// Reclassify re-runs classification for a request using the legacy
	// urgent-capable priority vocabulary.
	Reclassify(ctx context.Context, requestID string) (*models.Request, error)
}

// RequestPatch carries a partial update; nil fields are left untouched
type RequestPatch struct {
	Status   *models.Status   `json:"status,omitempty"`
	Category *models.Category `json:"category,omitempty"`
	Priority *models.Priority `json:"priority,omitempty"`
}

// AuthService resolves bearer tokens to principals
type AuthService interface {
	Authenticate(ctx context.Context, token string) (*models.Principal, error)
}

// MailerService sends outbound notifications. Best-effort; failures
// are logged, never surfaced to request handlers.
type MailerService interface {
	NotifyStatusChange(ctx context.Context, request *models.Request) error
}

package models

import (
	"time"
)

// JobState tracks an async classification job through its lifecycle.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateStarted   JobState = "started"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// TerminalState reports whether s is a final job state.
func TerminalState(s JobState) bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// Classification is the outcome of running the classifier over a
// request description.
type Classification struct {
	Category Category `json:"category"`
	Priority Priority `json:"priority"`
}

// ClassificationJob is the durable status record for one async
// classification. Result is set only when the job reaches a terminal
// state.
type ClassificationJob struct {
	ID        string          `json:"id" badgerhold:"key"`
	RequestID string          `json:"request_id" badgerhold:"index"`
	State     JobState        `json:"state"`
	Result    *Classification `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JobStatus is the shape returned by the status tracker.
type JobStatus struct {
	JobID  string          `json:"job_id"`
	State  JobState        `json:"state"`
	Result *Classification `json:"result,omitempty"`
}

// ClassifyPolicy selects the priority vocabulary offered to the
// remote classifier.
type ClassifyPolicy string

const (
	// PolicyStandard offers high/medium/low.
	PolicyStandard ClassifyPolicy = "standard"
	// PolicyLegacy additionally offers urgent. Used by the admin
	// reclassification path.
	PolicyLegacy ClassifyPolicy = "legacy"
)

// ClassifyMessage is the queue payload for one classification job.
// The job id is the queue message id, assigned at enqueue time.
type ClassifyMessage struct {
	RequestID   string `json:"request_id"`
	Description string `json:"description"`
}

// QueueMessage is the envelope stored in the badger-backed queue.
type QueueMessage struct {
	ID           string    `json:"id"`
	Body         []byte    `json:"body"`
	ReceiveCount int       `json:"receive_count"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	VisibleAt    time.Time `json:"visible_at"`
}

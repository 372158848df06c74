package models

import (
	"time"
)

// Category classifies what kind of maintenance work a request needs.
type Category string

const (
	CategoryElectrical Category = "electrical"
	CategoryPlumbing   Category = "plumbing"
	CategoryHVAC       Category = "hvac"
	CategoryStructural Category = "structural"
	CategoryOther      Category = "other"

	// CategoryProcessing is a transient placeholder held while an async
	// classification job is outstanding. Never a final value.
	CategoryProcessing Category = "processing"
)

// Priority is the urgency assigned to a request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"

	// PriorityProcessing mirrors CategoryProcessing - placeholder only.
	PriorityProcessing Priority = "processing"
)

// Status is the lifecycle state of a request, independent of
// category/priority resolution.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// SubmitMode selects the classification path for a submission.
type SubmitMode string

const (
	ModeAsync SubmitMode = "async"
	ModeSync  SubmitMode = "sync"
)

// Request is a maintenance request record. Category and priority are
// either both "processing" (job outstanding) or both resolved - a
// record is never partially resolved.
type Request struct {
	ID          string    `json:"id" badgerhold:"key"`
	OwnerID     string    `json:"owner_id" badgerhold:"index"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status" badgerhold:"index"`
	Location    string    `json:"location,omitempty"`
	ContactInfo string    `json:"contact_info,omitempty"`
	JobID       string    `json:"job_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsProcessing reports whether the record still carries the
// placeholder classification.
func (r *Request) IsProcessing() bool {
	return r.Category == CategoryProcessing || r.Priority == PriorityProcessing
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// ValidCategory reports whether c is a final (non-placeholder) category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryElectrical, CategoryPlumbing, CategoryHVAC, CategoryStructural, CategoryOther:
		return true
	}
	return false
}

// ValidPriority reports whether p is a final (non-placeholder) priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// RequestStats aggregates counts for the stats endpoint.
type RequestStats struct {
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"by_status"`
	ByCategory map[Category]int `json:"by_category"`
	ByPriority map[Priority]int `json:"by_priority"`
}

package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RequestStorage implements the RequestStorage interface for Badger
type RequestStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRequestStorage creates a new RequestStorage instance
func NewRequestStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RequestStorage {
	return &RequestStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RequestStorage) SaveRequest(ctx context.Context, request *models.Request) error {
	if request.ID == "" {
		return fmt.Errorf("request ID is required: %w", models.ErrValidation)
	}

	if err := s.db.Store().Upsert(request.ID, request); err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

func (s *RequestStorage) SetJobID(ctx context.Context, requestID, jobID string) error {
	err := s.db.Store().UpdateMatching(&models.Request{}, badgerhold.Where(badgerhold.Key).Eq(requestID), func(record interface{}) error {
		request, ok := record.(*models.Request)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		request.JobID = jobID
		request.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set job id on request %s: %w", requestID, err)
	}
	return nil
}

func (s *RequestStorage) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	var request models.Request
	if err := s.db.Store().Get(id, &request); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("request %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &request, nil
}

func (s *RequestStorage) DeleteRequest(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Request{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("request %s: %w", id, models.ErrNotFound)
		}
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return nil
}

func (s *RequestStorage) ListRequests(ctx context.Context, opts *interfaces.RequestListOptions) ([]*models.Request, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Category != "" {
			query = query.And("Category").Eq(opts.Category)
		}
		if opts.OwnerID != "" {
			query = query.And("OwnerID").Eq(opts.OwnerID)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}

	// Newest first
	query = query.SortBy("CreatedAt").Reverse()

	var requests []models.Request
	if err := s.db.Store().Find(&requests, query); err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	result := make([]*models.Request, len(requests))
	for i := range requests {
		result[i] = &requests[i]
	}
	return result, nil
}

func (s *RequestStorage) CountStats(ctx context.Context) (*models.RequestStats, error) {
	var requests []models.Request
	if err := s.db.Store().Find(&requests, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	stats := &models.RequestStats{
		Total:      len(requests),
		ByStatus:   make(map[models.Status]int),
		ByCategory: make(map[models.Category]int),
		ByPriority: make(map[models.Priority]int),
	}
	for i := range requests {
		stats.ByStatus[requests[i].Status]++
		stats.ByCategory[requests[i].Category]++
		stats.ByPriority[requests[i].Priority]++
	}
	return stats, nil
}

func (s *RequestStorage) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var requests []models.Request
	query := badgerhold.Where("Status").Eq(models.StatusCompleted).And("UpdatedAt").Lt(cutoff)
	if err := s.db.Store().Find(&requests, query); err != nil {
		return 0, fmt.Errorf("failed to find old requests: %w", err)
	}

	deleted := 0
	for i := range requests {
		if err := s.db.Store().Delete(requests[i].ID, &models.Request{}); err != nil {
			s.logger.Warn().Err(err).Str("request_id", requests[i].ID).Msg("Failed to delete old request")
			continue
		}
		deleted++
	}
	return deleted, nil
}

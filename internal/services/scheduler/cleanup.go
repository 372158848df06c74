package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/common"
	"github.com/ternarybob/steward/internal/interfaces"
)

// CleanupScheduler periodically removes completed requests older than
// the configured retention window.
type CleanupScheduler struct {
	config  *common.CleanupConfig
	storage interfaces.StorageManager
	cron    *cron.Cron
	logger  arbor.ILogger
}

// NewCleanupScheduler creates the cleanup scheduler
func NewCleanupScheduler(config *common.CleanupConfig, storage interfaces.StorageManager, logger arbor.ILogger) *CleanupScheduler {
	return &CleanupScheduler{
		config:  config,
		storage: storage,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start registers the cron entry and starts the scheduler
func (s *CleanupScheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Debug().Msg("Cleanup scheduler disabled")
		return nil
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "0 3 * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.runCleanup); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Int("retention_days", s.config.RetentionDays).
		Msg("Cleanup scheduler started")

	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *CleanupScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Cleanup scheduler stopped")
}

// RunOnce performs a single cleanup pass
func (s *CleanupScheduler) RunOnce(ctx context.Context) (int, error) {
	retention := s.config.RetentionDays
	if retention <= 0 {
		retention = 90
	}
	cutoff := time.Now().AddDate(0, 0, -retention)

	deleted, err := s.storage.RequestStorage().DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup pass failed: %w", err)
	}
	return deleted, nil
}

func (s *CleanupScheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled cleanup failed")
		return
	}

	s.logger.Info().Int("deleted", deleted).Msg("Scheduled cleanup completed")
}

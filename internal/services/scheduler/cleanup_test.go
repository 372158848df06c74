package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/common"
	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/models"
	badgerstorage "github.com/ternarybob/steward/internal/storage/badger"
)

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	storage, err := badgerstorage.NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "steward-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestRunOnce_RemovesOldCompletedRequests(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	old := &models.Request{
		ID:        "req_old",
		Status:    models.StatusCompleted,
		Category:  models.CategoryOther,
		Priority:  models.PriorityLow,
		CreatedAt: time.Now().AddDate(0, 0, -120),
		UpdatedAt: time.Now().AddDate(0, 0, -120),
	}
	recent := &models.Request{
		ID:        "req_recent",
		Status:    models.StatusCompleted,
		Category:  models.CategoryOther,
		Priority:  models.PriorityLow,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, storage.RequestStorage().SaveRequest(ctx, old))
	require.NoError(t, storage.RequestStorage().SaveRequest(ctx, recent))

	s := NewCleanupScheduler(&common.CleanupConfig{Enabled: true, RetentionDays: 90}, storage, arbor.NewLogger())

	deleted, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = storage.RequestStorage().GetRequest(ctx, "req_old")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = storage.RequestStorage().GetRequest(ctx, "req_recent")
	assert.NoError(t, err)
}

func TestStart_DisabledIsNoOp(t *testing.T) {
	storage := newTestStorage(t)
	s := NewCleanupScheduler(&common.CleanupConfig{Enabled: false}, storage, arbor.NewLogger())
	assert.NoError(t, s.Start())
}

func TestStart_InvalidSchedule(t *testing.T) {
	storage := newTestStorage(t)
	s := NewCleanupScheduler(&common.CleanupConfig{Enabled: true, Schedule: "not a cron"}, storage, arbor.NewLogger())
	assert.Error(t, s.Start())
}

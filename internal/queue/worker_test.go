package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/models"
)

func testPoolConfig() *Config {
	return &Config{
		QueueName:         "test",
		PollInterval:      10 * time.Millisecond,
		VisibilityTimeout: 50 * time.Millisecond,
		MaxReceive:        5,
		Concurrency:       2,
		JobTimeout:        time.Second,
	}
}

func TestWorkerPool_ProcessesMessages(t *testing.T) {
	db := newTestDB(t)
	cfg := testPoolConfig()
	mgr, err := NewManager(db, cfg.QueueName, cfg.VisibilityTimeout, cfg.MaxReceive)
	require.NoError(t, err)

	var processed atomic.Int32
	handler := func(ctx context.Context, msg *models.QueueMessage) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool(mgr, cfg, handler, arbor.NewLogger())
	require.NoError(t, pool.Start())
	defer pool.Stop()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := mgr.Enqueue(ctx, []byte("work"))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return processed.Load() == 3
	}, 2*time.Second, 10*time.Millisecond)

	// All messages acknowledged; nothing comes back
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(3), processed.Load())
}

func TestWorkerPool_HandlerErrorTriggersRedelivery(t *testing.T) {
	db := newTestDB(t)
	cfg := testPoolConfig()
	cfg.Concurrency = 1
	mgr, err := NewManager(db, cfg.QueueName, cfg.VisibilityTimeout, cfg.MaxReceive)
	require.NoError(t, err)

	var attempts atomic.Int32
	handler := func(ctx context.Context, msg *models.QueueMessage) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient failure")
		}
		return nil
	}

	pool := NewWorkerPool(mgr, cfg, handler, arbor.NewLogger())
	require.NoError(t, pool.Start())
	defer pool.Stop()

	_, err = mgr.Enqueue(context.Background(), []byte("retry me"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return attempts.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPool_StopWaitsForInFlightJobs(t *testing.T) {
	db := newTestDB(t)
	cfg := testPoolConfig()
	cfg.Concurrency = 1
	mgr, err := NewManager(db, cfg.QueueName, cfg.VisibilityTimeout, cfg.MaxReceive)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	handler := func(ctx context.Context, msg *models.QueueMessage) error {
		close(entered)
		<-release
		finished.Store(true)
		return nil
	}

	pool := NewWorkerPool(mgr, cfg, handler, arbor.NewLogger())
	require.NoError(t, pool.Start())

	_, err = mgr.Enqueue(context.Background(), []byte("slow"))
	require.NoError(t, err)

	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- pool.Stop() }()

	// Stop must not return while the handler is still running
	select {
	case <-stopped:
		t.Fatal("Stop returned with a job still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-stopped)
	assert.True(t, finished.Load())
}

func TestWorkerPool_RequiresHandler(t *testing.T) {
	db := newTestDB(t)
	cfg := testPoolConfig()
	mgr, err := NewManager(db, cfg.QueueName, cfg.VisibilityTimeout, cfg.MaxReceive)
	require.NoError(t, err)

	pool := NewWorkerPool(mgr, cfg, nil, arbor.NewLogger())
	assert.Error(t, pool.Start())
}

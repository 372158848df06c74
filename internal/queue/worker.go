package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/models"
)

// MessageHandler processes one received queue message. Returning an
// error leaves the message in the queue for redelivery after the
// visibility timeout.
type MessageHandler func(ctx context.Context, msg *models.QueueMessage) error

// WorkerPool manages a pool of workers that process queue messages
type WorkerPool struct {
	queueMgr *Manager
	config   *Config
	handler  MessageHandler
	logger   arbor.ILogger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queueMgr *Manager, config *Config, handler MessageHandler, logger arbor.ILogger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queueMgr: queueMgr,
		config:   config,
		handler:  handler,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() error {
	if wp.handler == nil {
		return errors.New("message handler is required")
	}

	wp.logger.Info().
		Int("concurrency", wp.config.Concurrency).
		Msg("Starting worker pool")

	for i := 0; i < wp.config.Concurrency; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	return nil
}

// Stop stops the worker pool and joins the worker goroutines. In-flight
// jobs run to completion (bounded by the per-job ceiling) so callers can
// safely release shared resources afterwards.
func (wp *WorkerPool) Stop() error {
	wp.logger.Info().Msg("Stopping worker pool")
	wp.cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(wp.config.JobTimeout + wp.config.PollInterval):
		return errors.New("worker pool stop timed out with jobs still in flight")
	}
}

// worker is the main worker loop that processes messages
func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	// Stagger worker starts to reduce lock contention.
	// Spread workers evenly across the poll interval.
	staggerDelay := (wp.config.PollInterval / time.Duration(wp.config.Concurrency)) * time.Duration(workerID)
	if staggerDelay > 0 {
		time.Sleep(staggerDelay)
	}

	wp.logger.Debug().
		Int("worker_id", workerID).
		Dur("stagger_delay", staggerDelay).
		Msg("Worker started")

	ticker := time.NewTicker(wp.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			if err := wp.processMessage(workerID); err != nil {
				if !errors.Is(err, ErrNoMessage) {
					wp.logger.Warn().
						Err(err).
						Int("worker_id", workerID).
						Msg("Error processing message")
				}
			}
		}
	}
}

// processMessage receives and processes a single message
func (wp *WorkerPool) processMessage(workerID int) error {
	msg, deleteFn, err := wp.queueMgr.Receive(wp.ctx)
	if err != nil {
		if errors.Is(err, ErrNoMessage) {
			return err
		}
		return fmt.Errorf("failed to receive message: %w", err)
	}

	wp.logger.Debug().
		Str("message_id", msg.ID).
		Int("receive_count", msg.ReceiveCount).
		Int("worker_id", workerID).
		Msg("Processing message")

	// Per-job execution ceiling
	jobCtx, cancel := context.WithTimeout(wp.ctx, wp.config.JobTimeout)
	defer cancel()

	startTime := time.Now()
	handlerErr := wp.handler(jobCtx, msg)
	duration := time.Since(startTime)

	if handlerErr != nil {
		// Leave the message in the queue; visibility timeout redelivers
		wp.logger.Error().
			Err(handlerErr).
			Str("message_id", msg.ID).
			Dur("duration", duration).
			Int("worker_id", workerID).
			Msg("Message handler failed, leaving message for redelivery")
		return handlerErr
	}

	wp.logger.Info().
		Str("message_id", msg.ID).
		Dur("duration", duration).
		Int("worker_id", workerID).
		Msg("Message processed successfully")

	if err := deleteFn(); err != nil {
		wp.logger.Warn().
			Err(err).
			Str("message_id", msg.ID).
			Msg("Failed to delete message after successful processing")
		return err
	}

	return nil
}

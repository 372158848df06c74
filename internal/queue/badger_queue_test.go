package queue

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/steward/internal/models"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestQueue_EnqueueReceiveAck(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewManager(db, "test", time.Minute, 3)
	require.NoError(t, err)

	ctx := context.Background()

	id, err := mgr.Enqueue(ctx, []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msg, deleteFn, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, msg.ID)
	assert.Equal(t, []byte(`{"hello":"world"}`), msg.Body)
	assert.Equal(t, 1, msg.ReceiveCount)

	// Claimed message is invisible until the timeout expires
	_, _, err = mgr.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)

	require.NoError(t, deleteFn())

	_, _, err = mgr.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestQueue_RedeliveryAfterVisibilityTimeout(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewManager(db, "test", 50*time.Millisecond, 5)
	require.NoError(t, err)

	ctx := context.Background()

	id, err := mgr.Enqueue(ctx, []byte("payload"))
	require.NoError(t, err)

	msg, _, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, msg.ReceiveCount)

	// Not acknowledged; message reappears after the visibility window
	time.Sleep(80 * time.Millisecond)

	msg, deleteFn, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, msg.ID)
	assert.Equal(t, 2, msg.ReceiveCount)

	require.NoError(t, deleteFn())
}

func TestQueue_PoisonMessageDropped(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewManager(db, "test", 20*time.Millisecond, 2)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = mgr.Enqueue(ctx, []byte("poison"))
	require.NoError(t, err)

	// Exhaust the receive budget without acknowledging
	for i := 0; i < 2; i++ {
		_, _, err := mgr.Receive(ctx)
		require.NoError(t, err)
		time.Sleep(40 * time.Millisecond)
	}

	// Next receive drops the message instead of delivering it
	_, _, err = mgr.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)

	// And it stays gone
	time.Sleep(40 * time.Millisecond)
	_, _, err = mgr.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestQueue_DropInvokesHandler(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewManager(db, "test", 20*time.Millisecond, 1)
	require.NoError(t, err)

	var dropped []*models.QueueMessage
	mgr.OnDrop(func(ctx context.Context, msg *models.QueueMessage) {
		dropped = append(dropped, msg)
	})

	ctx := context.Background()
	id, err := mgr.Enqueue(ctx, []byte("poison"))
	require.NoError(t, err)

	msg, _, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, msg.ID)
	time.Sleep(40 * time.Millisecond)

	// Budget exhausted: the drop is reported exactly once
	_, _, err = mgr.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)
	require.Len(t, dropped, 1)
	assert.Equal(t, id, dropped[0].ID)
	assert.Equal(t, []byte("poison"), dropped[0].Body)

	// The removal is durable; nothing comes back and nothing
	// is reported again
	time.Sleep(40 * time.Millisecond)
	_, _, err = mgr.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)
	assert.Len(t, dropped, 1)
}

func TestQueue_DeliveryOrder(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewManager(db, "test", time.Minute, 3)
	require.NoError(t, err)

	ctx := context.Background()

	first, err := mgr.Enqueue(ctx, []byte("first"))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := mgr.Enqueue(ctx, []byte("second"))
	require.NoError(t, err)

	msg, deleteFn, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, msg.ID)
	require.NoError(t, deleteFn())

	msg, deleteFn, err = mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, msg.ID)
	require.NoError(t, deleteFn())
}

func TestQueue_ExtendVisibility(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewManager(db, "test", 50*time.Millisecond, 3)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = mgr.Enqueue(ctx, []byte("slow job"))
	require.NoError(t, err)

	msg, deleteFn, err := mgr.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, mgr.Extend(ctx, msg.ID, time.Minute))

	// Past the original window but inside the extension
	time.Sleep(80 * time.Millisecond)
	_, _, err = mgr.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)

	require.NoError(t, deleteFn())
}

func TestQueue_EmptyReceive(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewManager(db, "test", time.Minute, 3)
	require.NoError(t, err)

	_, _, err = mgr.Receive(context.Background())
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestNewManager_Validation(t *testing.T) {
	db := newTestDB(t)

	_, err := NewManager(nil, "test", time.Minute, 3)
	assert.Error(t, err)

	_, err = NewManager(db, "", time.Minute, 3)
	assert.Error(t, err)
}

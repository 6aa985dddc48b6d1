package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/workerpool"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"github.com/lk2023060901/skynotes-backend/internal/storage/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T) *workerpool.Pool {
	t.Helper()
	pool, err := workerpool.New(&workerpool.Config{Workers: 4, ShutdownTimeout: time.Second}, logger.NewNop())
	require.NoError(t, err)
	return pool
}

func TestPoolQueueRunsTasks(t *testing.T) {
	pool := newPool(t)
	defer pool.Shutdown()

	var (
		mu   sync.Mutex
		seen []string
	)
	handler := func(ctx context.Context, task *biz.Task) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, task.Event.FileID)
		return nil
	}
	q := queue.NewPoolQueue(pool, handler, logger.NewNop())
	require.NoError(t, q.Start(context.Background()))

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(context.Background(), &biz.Task{Kind: biz.TaskIngest, Event: biz.FileEvent{FileID: id}}))
	}
	q.Stop()

	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestPoolQueueDetachesRequestContext(t *testing.T) {
	pool := newPool(t)
	defer pool.Shutdown()

	var ctxErr atomic.Value
	release := make(chan struct{})
	handler := func(ctx context.Context, task *biz.Task) error {
		<-release
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		return errors.New("handler failures are logged")
	}
	q := queue.NewPoolQueue(pool, handler, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, &biz.Task{Kind: biz.TaskThumbnail, Event: biz.FileEvent{FileID: "x"}}))
	cancel()
	close(release)
	q.Stop()

	assert.Nil(t, ctxErr.Load(), "task context outlives the request")
}

func TestPoolQueueSubmitAfterShutdown(t *testing.T) {
	pool := newPool(t)
	pool.Shutdown()

	q := queue.NewPoolQueue(pool, func(context.Context, *biz.Task) error { return nil }, logger.NewNop())
	err := q.Enqueue(context.Background(), &biz.Task{Kind: biz.TaskIngest})
	assert.ErrorIs(t, err, workerpool.ErrPoolClosed)

	// Stop must not hang on the rejected task
	q.Stop()
}

package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/workerpool"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"go.uber.org/zap"
)

// PoolQueue 进程内队列，任务直接提交到 worker pool（单实例部署）
type PoolQueue struct {
	pool    *workerpool.Pool
	handler TaskHandler
	logger  *logger.Logger
	wg      sync.WaitGroup
}

// NewPoolQueue 创建进程内队列
func NewPoolQueue(pool *workerpool.Pool, handler TaskHandler, log *logger.Logger) *PoolQueue {
	return &PoolQueue{
		pool:    pool,
		handler: handler,
		logger:  log,
	}
}

// Start 无需启动
func (q *PoolQueue) Start(context.Context) error {
	return nil
}

// Stop 等待已提交的任务完成
func (q *PoolQueue) Stop() {
	q.wg.Wait()
}

// Enqueue 提交任务。任务脱离请求 context 的取消。
func (q *PoolQueue) Enqueue(ctx context.Context, task *biz.Task) error {
	taskCtx := context.WithoutCancel(ctx)
	log := q.logger.WithContext(ctx).With(
		zap.String("file_id", task.Event.FileID),
		zap.String("kind", string(task.Kind)))

	q.wg.Add(1)
	err := q.pool.Submit(func() {
		defer q.wg.Done()
		if err := q.handler(taskCtx, task); err != nil {
			log.Error("file task failed", zap.Error(err))
			return
		}
		log.Info("file task completed")
	})
	if err != nil {
		q.wg.Done()
		return fmt.Errorf("failed to submit task: %w", err)
	}
	return nil
}

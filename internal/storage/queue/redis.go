package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	pkgredis "github.com/lk2023060901/skynotes-backend/internal/pkg/redis"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	FileTaskQueue = "queue:file:tasks"
	ProcessingSet = "set:file:processing"
)

// RedisQueue 基于 Redis 列表的任务队列，多个 worker 阻塞出队
type RedisQueue struct {
	redis       *pkgredis.Client
	handler     TaskHandler
	logger      *logger.Logger
	workerCount int
	pollTimeout time.Duration
	wg          sync.WaitGroup
	stopCh      chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewRedisQueue 创建 Redis 队列
func NewRedisQueue(
	redis *pkgredis.Client,
	handler TaskHandler,
	log *logger.Logger,
	workerCount int,
	pollTimeout time.Duration,
) *RedisQueue {
	if workerCount <= 0 {
		workerCount = 4
	}
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}
	return &RedisQueue{
		redis:       redis,
		handler:     handler,
		logger:      log,
		workerCount: workerCount,
		pollTimeout: pollTimeout,
		stopCh:      make(chan struct{}),
	}
}

// Start 启动 worker
func (q *RedisQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return fmt.Errorf("queue already running")
	}

	q.running = true
	q.logger.Info("starting file task workers", zap.Int("worker_count", q.workerCount))

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.processLoop(ctx, i)
	}
	return nil
}

// Stop 停止 worker，等待正在执行的任务结束
func (q *RedisQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	q.logger.Info("stopping file task workers")
	close(q.stopCh)
	q.wg.Wait()
	q.running = false
	q.logger.Info("all file task workers stopped")
}

// Enqueue 任务入队
func (q *RedisQueue) Enqueue(ctx context.Context, task *biz.Task) error {
	payload, err := encodeTask(task)
	if err != nil {
		return err
	}

	if _, err := q.redis.LPush(ctx, FileTaskQueue, payload); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	q.logger.WithContext(ctx).Debug("file task enqueued",
		zap.String("file_id", task.Event.FileID),
		zap.String("kind", string(task.Kind)))
	return nil
}

func (q *RedisQueue) processLoop(ctx context.Context, workerID int) {
	defer q.wg.Done()

	log := q.logger.With(zap.Int("worker_id", workerID))
	log.Debug("worker started")

	for {
		select {
		case <-q.stopCh:
			log.Debug("worker stopping")
			return
		case <-ctx.Done():
			log.Debug("context cancelled, worker stopping")
			return
		default:
		}

		payload, err := q.redis.BRPop(ctx, q.pollTimeout, FileTaskQueue)
		if err != nil {
			if !pkgredis.IsNil(err) && !errors.Is(err, context.Canceled) {
				log.Warn("failed to dequeue task", zap.Error(err))
				q.sleep(ctx)
			}
			continue
		}

		task, err := decodeTask(payload)
		if err != nil {
			log.Error("failed to decode task", zap.Error(err))
			continue
		}

		q.processTask(ctx, task, log)
	}
}

// encodeTask 任务以 msgpack 编码，文件内容按原始字节存储
func encodeTask(task *biz.Task) ([]byte, error) {
	b, err := msgpack.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	return b, nil
}

func decodeTask(payload string) (*biz.Task, error) {
	var task biz.Task
	if err := msgpack.Unmarshal([]byte(payload), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.Event.FileID == "" {
		return nil, errors.New("task without file id")
	}
	return &task, nil
}

// processTask 执行单个任务，失败不重试
func (q *RedisQueue) processTask(ctx context.Context, task *biz.Task, log *logger.Logger) {
	log = log.With(
		zap.String("file_id", task.Event.FileID),
		zap.String("kind", string(task.Kind)))

	if _, err := q.redis.SAdd(ctx, ProcessingSet, task.Event.FileID); err != nil {
		log.Warn("failed to mark file as processing", zap.Error(err))
	}

	err := q.handler(ctx, task)

	_, _ = q.redis.SRem(ctx, ProcessingSet, task.Event.FileID)

	if err != nil {
		log.Error("file task failed", zap.Error(err))
		return
	}
	log.Info("file task completed")
}

// sleep 出队出错时退避，避免空转
func (q *RedisQueue) sleep(ctx context.Context) {
	t := time.NewTimer(q.pollTimeout)
	defer t.Stop()
	select {
	case <-t.C:
	case <-q.stopCh:
	case <-ctx.Done():
	}
}

// QueueSize 队列长度
func (q *RedisQueue) QueueSize(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, FileTaskQueue)
}

// ProcessingCount 正在处理的文件数量
func (q *RedisQueue) ProcessingCount(ctx context.Context) (int64, error) {
	return q.redis.SCard(ctx, ProcessingSet)
}

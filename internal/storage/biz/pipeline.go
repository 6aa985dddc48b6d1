package biz

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/eventbus"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/metrics"
	"github.com/lk2023060901/skynotes-backend/internal/storage/types"
	"go.uber.org/zap"
)

// Clock 可注入的时钟
type Clock func() time.Time

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// FileEvent 流水线事件载荷
type FileEvent struct {
	FileID    string `msgpack:"file_id"`
	Extension string `msgpack:"extension"`
	Content   []byte `msgpack:"content"`
}

// TaskKind 任务类型
type TaskKind string

const (
	// TaskIngest 持久化文件内容
	TaskIngest TaskKind = "ingest"
	// TaskThumbnail 生成缩略图
	TaskThumbnail TaskKind = "thumbnail"
)

// Task 队列中的一个流水线阶段
type Task struct {
	Kind  TaskKind  `msgpack:"kind"`
	Event FileEvent `msgpack:"event"`
}

// TaskQueue 任务队列接口
type TaskQueue interface {
	Enqueue(ctx context.Context, task *Task) error
}

// Thumbnailer 缩略图服务接口
type Thumbnailer interface {
	GenerateThumbnail(ctx context.Context, content []byte) ([]byte, error)
}

// Pipeline 文件处理流水线：REQUESTED → PROCESSING → THUMBNAIL_CREATION → COMPLETED
type Pipeline struct {
	files  FileRepo
	blobs  BlobStore
	thumbs Thumbnailer
	bus    *eventbus.Bus[FileEvent]
	queue  TaskQueue
	logger *logger.Logger
}

// NewPipeline 创建流水线
func NewPipeline(
	files FileRepo,
	blobs BlobStore,
	thumbs Thumbnailer,
	bus *eventbus.Bus[FileEvent],
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		files:  files,
		blobs:  blobs,
		thumbs: thumbs,
		bus:    bus,
		logger: log,
	}
}

// Subscribe 注册事件处理器，事件到达时将对应阶段放入队列。启动时调用一次。
func (p *Pipeline) Subscribe(queue TaskQueue) {
	p.queue = queue
	p.bus.Register(types.EventFileCreated, p.HandleFileCreated)
	p.bus.Register(types.EventFileUploaded, p.HandleFileUploaded)
}

// HandleFileCreated file:created → 入队持久化任务
func (p *Pipeline) HandleFileCreated(ctx context.Context, ev FileEvent) error {
	return p.enqueue(ctx, TaskIngest, ev)
}

// HandleFileUploaded file:uploaded → 入队缩略图任务
func (p *Pipeline) HandleFileUploaded(ctx context.Context, ev FileEvent) error {
	return p.enqueue(ctx, TaskThumbnail, ev)
}

func (p *Pipeline) enqueue(ctx context.Context, kind TaskKind, ev FileEvent) error {
	if p.queue == nil {
		return errors.New("pipeline: no task queue subscribed")
	}
	if err := p.queue.Enqueue(ctx, &Task{Kind: kind, Event: ev}); err != nil {
		return fmt.Errorf("enqueue %s task: %w", kind, err)
	}
	return nil
}

// Process 执行一个阶段任务。失败不重试，错误由调用方记录。
func (p *Pipeline) Process(ctx context.Context, task *Task) error {
	var err error
	switch task.Kind {
	case TaskIngest:
		err = p.ingest(ctx, task.Event)
	case TaskThumbnail:
		err = p.thumbnail(ctx, task.Event)
	default:
		return fmt.Errorf("pipeline: unknown task kind %q", task.Kind)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.PipelineStages.WithLabelValues(string(task.Kind), outcome).Inc()
	return err
}

// ingest REQUESTED → PROCESSING，写入对象存储后发布 file:uploaded
func (p *Pipeline) ingest(ctx context.Context, ev FileEvent) error {
	log := p.logger.WithContext(ctx).With(zap.String("file_id", ev.FileID))

	if err := p.advance(ctx, ev.FileID, types.StatusRequested, types.EventFileCreated); err != nil {
		return err
	}

	key := ContentKey(ev.FileID, ev.Extension)
	contentType := mime.TypeByExtension(ev.Extension)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := p.blobs.Put(ctx, key, ev.Content, contentType); err != nil {
		return fmt.Errorf("store content: %w", err)
	}
	if err := p.files.SetContentKey(ctx, ev.FileID, key); err != nil {
		return fmt.Errorf("record content key: %w", err)
	}

	log.Info("file content stored", zap.String("key", key), zap.Int("size", len(ev.Content)))

	return p.bus.Emit(ctx, types.EventFileUploaded, ev)
}

// thumbnail PROCESSING → THUMBNAIL_CREATION → COMPLETED。
// 缩略图失败时记录 failed 状态并照常完成。
func (p *Pipeline) thumbnail(ctx context.Context, ev FileEvent) error {
	log := p.logger.WithContext(ctx).With(zap.String("file_id", ev.FileID))

	if err := p.advance(ctx, ev.FileID, types.StatusProcessing, types.EventFileUploaded); err != nil {
		return err
	}

	key, err := p.renderThumbnail(ctx, ev.FileID)
	if err != nil {
		log.Warn("thumbnail generation failed", zap.Error(err))
		if err := p.files.SetThumbnail(ctx, ev.FileID, nil, types.ThumbnailFailed); err != nil {
			return fmt.Errorf("record thumbnail failure: %w", err)
		}
		return p.advance(ctx, ev.FileID, types.StatusThumbnailCreation, types.EventFileThumbnailFailed)
	}

	if err := p.files.SetThumbnail(ctx, ev.FileID, &key, types.ThumbnailCreated); err != nil {
		return fmt.Errorf("record thumbnail: %w", err)
	}
	if err := p.advance(ctx, ev.FileID, types.StatusThumbnailCreation, types.EventFileThumbnailCreated); err != nil {
		return err
	}

	log.Info("thumbnail created", zap.String("key", key))
	return p.bus.Emit(ctx, types.EventFileThumbnailCreated, ev)
}

func (p *Pipeline) renderThumbnail(ctx context.Context, fileID string) (string, error) {
	file, err := p.files.GetByID(ctx, fileID)
	if err != nil {
		return "", err
	}
	content, err := p.blobs.Get(ctx, file.ContentKey)
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}

	start := time.Now()
	thumb, err := p.thumbs.GenerateThumbnail(ctx, content)
	metrics.ThumbnailDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	key := ThumbnailKey(fileID)
	if err := p.blobs.Put(ctx, key, thumb, "image/png"); err != nil {
		return "", fmt.Errorf("store thumbnail: %w", err)
	}
	return key, nil
}

// advance 用状态机计算下一状态，并以条件更新写入
func (p *Pipeline) advance(ctx context.Context, fileID string, current types.FileStatus, event types.Event) error {
	next, err := types.NextStatus(current, event)
	if err != nil {
		return err
	}
	if err := p.files.AdvanceStatus(ctx, fileID, current, next); err != nil {
		return fmt.Errorf("advance %s -> %s: %w", current, next, err)
	}
	return nil
}

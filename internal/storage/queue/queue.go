package queue

import (
	"context"

	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
)

// 队列驱动
const (
	DriverRedis = "redis"
	DriverPool  = "pool"
)

// TaskHandler 处理一个出队任务（biz.Pipeline.Process）
type TaskHandler func(ctx context.Context, task *biz.Task) error

// Queue 流水线任务队列
type Queue interface {
	biz.TaskQueue
	Start(ctx context.Context) error
	Stop()
}

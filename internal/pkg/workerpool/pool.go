package workerpool

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed   = errors.New("worker pool is closed")
	ErrPoolOverload = errors.New("worker pool is overloaded")
)

// Config Worker Pool 配置
type Config struct {
	Workers int `mapstructure:"workers"` // worker 数量上限
	// MaxBlockingTasks 为 0 时不限制等待中的提交数
	MaxBlockingTasks int `mapstructure:"max_blocking_tasks"`
	// Nonblocking 为 true 时池满立即返回 ErrPoolOverload
	Nonblocking bool `mapstructure:"nonblocking"`
	// ShutdownTimeout 关闭时等待运行中任务的最长时间
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:         16,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Statistics 统计信息
type Statistics struct {
	Submitted int64 // 已提交
	Completed int64 // 已完成
	Panicked  int64 // 发生 panic
	Rejected  int64 // 提交失败
}

// Pool 基于 ants 的 Worker Pool
type Pool struct {
	pool   *ants.Pool
	config *Config
	logger *logger.Logger

	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	rejected  atomic.Int64
}

// New 创建 Worker Pool
func New(config *Config, log *logger.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("workerpool: workers must be > 0, got %d", config.Workers)
	}

	p := &Pool{
		config: config,
		logger: log.Named("workerpool"),
	}

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithPanicHandler(func(r interface{}) {
			p.panicked.Add(1)
			p.logger.Error("worker panic", zap.Any("error", r), zap.Stack("stacktrace"))
		}),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
		ants.WithNonblocking(config.Nonblocking),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}
	p.pool = antsPool

	return p, nil
}

// Submit 提交任务
func (p *Pool) Submit(task func()) error {
	p.submitted.Add(1)

	err := p.pool.Submit(func() {
		defer p.completed.Add(1)
		task()
	})
	if err != nil {
		p.rejected.Add(1)
		switch {
		case errors.Is(err, ants.ErrPoolClosed):
			return ErrPoolClosed
		case errors.Is(err, ants.ErrPoolOverload):
			return ErrPoolOverload
		default:
			return err
		}
	}
	return nil
}

// Running 获取运行中的 worker 数量
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Stats 获取统计信息
func (p *Pool) Stats() Statistics {
	return Statistics{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// Shutdown 关闭并等待运行中的任务结束
func (p *Pool) Shutdown() {
	timeout := p.config.ShutdownTimeout
	if timeout <= 0 {
		p.pool.Release()
		return
	}
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.logger.Warn("worker pool shutdown timed out", zap.Duration("timeout", timeout), zap.Error(err))
	}
}

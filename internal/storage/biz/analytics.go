package biz

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/metrics"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/validator"
	"go.uber.org/zap"
)

// 访问记录字段长度上限
const (
	maxUserAgentLength = 512
	maxRefererLength   = 1024
)

// FileAnalytics 分享访问记录（只追加）
type FileAnalytics struct {
	ID        string
	ShareID   string
	IP        string
	UserAgent string
	Referer   string
	CreatedAt time.Time
}

// AnalyticsRepo 访问记录仓储
type AnalyticsRepo interface {
	Create(ctx context.Context, record *FileAnalytics) error
	ListByShare(ctx context.Context, shareID string) ([]*FileAnalytics, error)
}

// Submitter 异步执行任务（workerpool.Pool）
type Submitter interface {
	Submit(task func()) error
}

// AccessInfo 一次令牌访问的请求信息
type AccessInfo struct {
	ShareID   string
	IP        string
	UserAgent string
	Referer   string
}

// AnalyticsRecorder 在响应路径之外记录访问
type AnalyticsRecorder struct {
	repo      AnalyticsRepo
	submitter Submitter
	timeout   time.Duration
	now       Clock
	logger    *logger.Logger
}

// NewAnalyticsRecorder 创建访问记录器
func NewAnalyticsRecorder(repo AnalyticsRepo, submitter Submitter, now Clock, log *logger.Logger) *AnalyticsRecorder {
	return &AnalyticsRecorder{
		repo:      repo,
		submitter: submitter,
		timeout:   5 * time.Second,
		now:       clockOrDefault(now),
		logger:    log,
	}
}

// Record 提交一条访问记录，失败只记录日志
func (r *AnalyticsRecorder) Record(ctx context.Context, info AccessInfo) {
	record := &FileAnalytics{
		ID:        uuid.NewString(),
		ShareID:   info.ShareID,
		IP:        validator.ClientIP(info.IP),
		UserAgent: truncate(info.UserAgent, maxUserAgentLength),
		Referer:   truncate(info.Referer, maxRefererLength),
		CreatedAt: r.now(),
	}

	base := context.WithoutCancel(ctx)
	log := r.logger.WithContext(ctx).With(zap.String("share_id", info.ShareID))

	err := r.submitter.Submit(func() {
		ctx, cancel := context.WithTimeout(base, r.timeout)
		defer cancel()

		if err := r.repo.Create(ctx, record); err != nil {
			metrics.AnalyticsDropped.Inc()
			log.Warn("failed to store access record", zap.Error(err))
		}
	})
	if err != nil {
		metrics.AnalyticsDropped.Inc()
		log.Warn("failed to submit access record", zap.Error(err))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

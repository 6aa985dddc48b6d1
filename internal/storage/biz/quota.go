package biz

import (
	"context"
	"fmt"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/metrics"
	"go.uber.org/zap"
)

// DefaultQuotaBytes 未配置时的默认配额（1 GiB）
const DefaultQuotaBytes int64 = 1 << 30

// QuotaRepo 用户配额仓储
type QuotaRepo interface {
	// GetLimit 返回用户配额；未设置时 ok 为 false
	GetLimit(ctx context.Context, ownerID string) (limit int64, ok bool, err error)
	SetLimit(ctx context.Context, ownerID string, limit int64) error
}

// Locker 按 key 串行执行
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

// Transactor 在同一事务内执行 fn，fn 返回错误时回滚
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// QuotaUsage 配额使用情况
type QuotaUsage struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// QuotaGuard 在文件记录创建前检查所有者的存储配额
type QuotaGuard struct {
	files        FileRepo
	quotas       QuotaRepo
	locker       Locker
	tx           Transactor
	defaultLimit int64
	logger       *logger.Logger
}

// NewQuotaGuard 创建配额检查器，tx 为 nil 时不开启事务
func NewQuotaGuard(files FileRepo, quotas QuotaRepo, locker Locker, tx Transactor, defaultLimit int64, log *logger.Logger) *QuotaGuard {
	if defaultLimit <= 0 {
		defaultLimit = DefaultQuotaBytes
	}
	return &QuotaGuard{
		files:        files,
		quotas:       quotas,
		locker:       locker,
		tx:           tx,
		defaultLimit: defaultLimit,
		logger:       log,
	}
}

// Limit 返回用户配额
func (g *QuotaGuard) Limit(ctx context.Context, ownerID string) (int64, error) {
	limit, ok, err := g.quotas.GetLimit(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("get quota: %w", err)
	}
	if !ok {
		return g.defaultLimit, nil
	}
	return limit, nil
}

// Usage 返回已用空间和配额
func (g *QuotaGuard) Usage(ctx context.Context, ownerID string) (*QuotaUsage, error) {
	used, err := g.files.TotalSize(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sum file sizes: %w", err)
	}
	limit, err := g.Limit(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &QuotaUsage{Used: used, Limit: limit}, nil
}

// SetLimit 设置用户配额（仅管理员）
func (g *QuotaGuard) SetLimit(ctx context.Context, p *Principal, ownerID string, limit int64) error {
	if p == nil || !p.IsStaff {
		return ErrForbidden
	}
	if ownerID == "" || limit <= 0 {
		return fmt.Errorf("%w: quota limit must be positive", ErrInvalidFile)
	}
	if err := g.quotas.SetLimit(ctx, ownerID, limit); err != nil {
		return err
	}

	g.logger.WithContext(ctx).Info("quota updated",
		zap.String("owner_id", ownerID),
		zap.Int64("limit", limit))
	return nil
}

// Admit 在所有者锁内检查配额，通过后执行 create；统计与 create 在同一事务内。
// 超出配额时返回 ErrQuotaExceeded，create 不会被调用。
func (g *QuotaGuard) Admit(ctx context.Context, ownerID string, incoming int64, create func(ctx context.Context) error) error {
	return g.locker.WithLock(ctx, "quota:"+ownerID, func() error {
		if g.tx == nil {
			return g.admit(ctx, ownerID, incoming, create)
		}
		return g.tx.InTx(ctx, func(ctx context.Context) error {
			return g.admit(ctx, ownerID, incoming, create)
		})
	})
}

func (g *QuotaGuard) admit(ctx context.Context, ownerID string, incoming int64, create func(ctx context.Context) error) error {
	usage, err := g.Usage(ctx, ownerID)
	if err != nil {
		return err
	}
	if usage.Used+incoming > usage.Limit {
		metrics.QuotaRejections.Inc()
		g.logger.WithContext(ctx).Info("upload rejected by quota",
			zap.String("owner_id", ownerID),
			zap.Int64("used", usage.Used),
			zap.Int64("incoming", incoming),
			zap.Int64("limit", usage.Limit))
		return ErrQuotaExceeded
	}
	return create(ctx)
}

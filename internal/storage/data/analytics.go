package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/database"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"gorm.io/gorm/clause"
)

// AnalyticsRepo 访问记录仓储实现
type AnalyticsRepo struct {
	db *database.DB
}

// NewAnalyticsRepo 创建访问记录仓储
func NewAnalyticsRepo(db *database.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

// Create 追加访问记录
func (r *AnalyticsRepo) Create(ctx context.Context, record *biz.FileAnalytics) error {
	po := &FileAnalyticsPO{
		ID:        record.ID,
		ShareID:   record.ShareID,
		IP:        record.IP,
		UserAgent: record.UserAgent,
		Referer:   record.Referer,
		CreatedAt: record.CreatedAt,
	}
	// 重复投递同一记录时忽略
	err := database.Conn(ctx, r.db.DB).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(po).Error
	if err != nil {
		return fmt.Errorf("failed to create access record: %w", err)
	}
	return nil
}

// ListByShare 列出分享的访问记录（最新在前）
func (r *AnalyticsRepo) ListByShare(ctx context.Context, shareID string) ([]*biz.FileAnalytics, error) {
	var pos []FileAnalyticsPO
	err := database.Conn(ctx, r.db.DB).
		Where("share_id = ?", shareID).
		Order("created_at DESC").
		Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list access records: %w", err)
	}

	records := make([]*biz.FileAnalytics, len(pos))
	for i, po := range pos {
		records[i] = &biz.FileAnalytics{
			ID:        po.ID,
			ShareID:   po.ShareID,
			IP:        po.IP,
			UserAgent: po.UserAgent,
			Referer:   po.Referer,
			CreatedAt: po.CreatedAt,
		}
	}
	return records, nil
}

// QuotaRepo 用户配额仓储实现
type QuotaRepo struct {
	db *database.DB
}

// NewQuotaRepo 创建配额仓储
func NewQuotaRepo(db *database.DB) *QuotaRepo {
	return &QuotaRepo{db: db}
}

// GetLimit 查询用户配额，无记录时 ok=false
func (r *QuotaRepo) GetLimit(ctx context.Context, ownerID string) (int64, bool, error) {
	var po UserQuotaPO
	err := database.Conn(ctx, r.db.DB).Where("user_id = ?", ownerID).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get quota: %w", err)
	}
	return po.LimitBytes, true, nil
}

// SetLimit 设置用户配额（存在则覆盖）
func (r *QuotaRepo) SetLimit(ctx context.Context, ownerID string, limit int64) error {
	po := &UserQuotaPO{UserID: ownerID, LimitBytes: limit, UpdatedAt: time.Now()}
	err := database.Conn(ctx, r.db.DB).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"limit_bytes", "updated_at"}),
	}).Create(po).Error
	if err != nil {
		return fmt.Errorf("failed to set quota: %w", err)
	}
	return nil
}

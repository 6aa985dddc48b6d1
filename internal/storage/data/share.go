package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/database"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"gorm.io/gorm"
)

// ShareRepo 分享仓储实现
type ShareRepo struct {
	db *database.DB
}

// NewShareRepo 创建分享仓储
func NewShareRepo(db *database.DB) *ShareRepo {
	return &ShareRepo{db: db}
}

func (r *ShareRepo) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db.DB)
}

// Create 创建分享
func (r *ShareRepo) Create(ctx context.Context, share *biz.FileShare) error {
	if err := r.conn(ctx).Create(shareToPO(share)).Error; err != nil {
		if database.IsForeignKeyError(err) {
			return biz.ErrFileNotFound
		}
		return fmt.Errorf("failed to create share: %w", err)
	}
	return nil
}

// ListByFile 列出文件的全部分享（最新在前）
func (r *ShareRepo) ListByFile(ctx context.Context, fileID string) ([]*biz.FileShare, error) {
	var pos []FileSharePO
	err := r.conn(ctx).
		Where("file_id = ?", fileID).
		Scopes(database.OrderBy("created_at", true)).
		Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	shares := make([]*biz.FileShare, len(pos))
	for i := range pos {
		shares[i] = shareToDomain(&pos[i])
	}
	return shares, nil
}

// GetByToken 根据令牌获取分享（包括已撤销）
func (r *ShareRepo) GetByToken(ctx context.Context, fileID, token string) (*biz.FileShare, error) {
	return r.first(ctx, r.conn(ctx).Where("file_id = ? AND token = ?", fileID, token))
}

// GetActive 根据令牌获取有效分享
func (r *ShareRepo) GetActive(ctx context.Context, fileID, token string) (*biz.FileShare, error) {
	return r.first(ctx, r.conn(ctx).Where("file_id = ? AND token = ? AND is_active = ?", fileID, token, true))
}

func (r *ShareRepo) first(_ context.Context, q *gorm.DB) (*biz.FileShare, error) {
	var po FileSharePO
	if err := q.First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	return shareToDomain(&po), nil
}

// Deactivate 撤销分享：UPDATE ... WHERE is_active = true
func (r *ShareRepo) Deactivate(ctx context.Context, fileID, token string) error {
	res := r.conn(ctx).Model(&FileSharePO{}).
		Where("file_id = ? AND token = ? AND is_active = ?", fileID, token, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to revoke share: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return biz.ErrShareNotFound
	}
	return nil
}

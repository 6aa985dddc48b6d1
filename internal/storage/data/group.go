package data

import (
	"context"
	"fmt"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/database"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"gorm.io/gorm"
)

// GroupRepo 分组仓储实现
type GroupRepo struct {
	db *database.DB
}

// NewGroupRepo 创建分组仓储
func NewGroupRepo(db *database.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

func (r *GroupRepo) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db.DB)
}

// withStats 分组 LEFT JOIN 文件统计数量与大小
func (r *GroupRepo) withStats(ctx context.Context) *gorm.DB {
	return r.conn(ctx).
		Table("groups").
		Select("groups.*, COUNT(files.id) AS file_count, COALESCE(SUM(files.size), 0) AS total_size").
		Joins("LEFT JOIN files ON files.group_id = groups.id").
		Group("groups.id")
}

// Create 创建分组
func (r *GroupRepo) Create(ctx context.Context, group *biz.Group) error {
	if err := r.conn(ctx).Create(groupToPO(group)).Error; err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// GetByID 获取分组及统计
func (r *GroupRepo) GetByID(ctx context.Context, id string) (*biz.Group, error) {
	var rows []groupRow
	err := r.withStats(ctx).Where("groups.id = ?", id).Limit(1).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if len(rows) == 0 {
		return nil, biz.ErrGroupNotFound
	}
	return groupToDomain(&rows[0]), nil
}

// ListByOwner 列出用户分组（按名称排序）
func (r *GroupRepo) ListByOwner(ctx context.Context, ownerID string) ([]*biz.Group, error) {
	var rows []groupRow
	err := r.withStats(ctx).
		Where("groups.owner_id = ?", ownerID).
		Order("groups.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	groups := make([]*biz.Group, len(rows))
	for i := range rows {
		groups[i] = groupToDomain(&rows[i])
	}
	return groups, nil
}

// Update 更新分组
func (r *GroupRepo) Update(ctx context.Context, group *biz.Group) error {
	res := r.conn(ctx).Model(&GroupPO{}).
		Where("id = ?", group.ID).
		Updates(map[string]interface{}{
			"name":        group.Name,
			"icon":        string(group.Icon),
			"description": group.Description,
			"updated_at":  group.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return biz.ErrGroupNotFound
	}
	return nil
}

// Delete 删除分组，外键 ON DELETE SET NULL 将文件移出分组
func (r *GroupRepo) Delete(ctx context.Context, id string) error {
	res := r.conn(ctx).Where("id = ?", id).Delete(&GroupPO{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return biz.ErrGroupNotFound
	}
	return nil
}

package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/database"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"github.com/lk2023060901/skynotes-backend/internal/storage/types"
	"gorm.io/gorm"
)

// FileRepo 文件仓储实现
type FileRepo struct {
	db *database.DB
}

// NewFileRepo 创建文件仓储
func NewFileRepo(db *database.DB) *FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db.DB)
}

// Create 创建文件记录
func (r *FileRepo) Create(ctx context.Context, file *biz.File) error {
	if err := r.conn(ctx).Create(fileToPO(file)).Error; err != nil {
		if database.IsForeignKeyError(err) {
			return biz.ErrGroupNotFound
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取文件
func (r *FileRepo) GetByID(ctx context.Context, id string) (*biz.File, error) {
	var po FilePO
	err := r.conn(ctx).Where("id = ?", id).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return fileToDomain(&po), nil
}

// ListByOwner 列出文件，groupID 为 nil 时只返回未分组文件
func (r *FileRepo) ListByOwner(ctx context.Context, ownerID string, groupID *string) ([]*biz.File, error) {
	var pos []FilePO
	err := r.conn(ctx).
		Where("owner_id = ?", ownerID).
		Scopes(
			database.WhereIf(groupID == nil, "group_id IS NULL"),
			database.WhereIf(groupID != nil, "group_id = ?", groupID),
			database.OrderBy("created_at", true),
		).
		Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]*biz.File, len(pos))
	for i := range pos {
		files[i] = fileToDomain(&pos[i])
	}
	return files, nil
}

// Update 更新文件元数据
func (r *FileRepo) Update(ctx context.Context, file *biz.File) error {
	updates := map[string]interface{}{
		"name":        file.Name,
		"description": file.Description,
		"tags":        encodeTags(file.Tags),
		"group_id":    file.GroupID,
		"updated_at":  file.UpdatedAt,
	}
	return r.updateByID(ctx, file.ID, updates, "update file")
}

// Delete 删除文件记录（分享和访问记录级联删除）
func (r *FileRepo) Delete(ctx context.Context, id string) error {
	res := r.conn(ctx).Where("id = ?", id).Delete(&FilePO{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete file: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return biz.ErrFileNotFound
	}
	return nil
}

// AdvanceStatus 条件更新状态：WHERE status = from
func (r *FileRepo) AdvanceStatus(ctx context.Context, id string, from, to types.FileStatus) error {
	res := r.conn(ctx).Model(&FilePO{}).
		Where("id = ? AND status = ?", id, int(from)).
		Updates(map[string]interface{}{
			"status":     int(to),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to advance file status: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// 区分记录不存在与状态不匹配
	var count int64
	if err := r.conn(ctx).Model(&FilePO{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check file: %w", err)
	}
	if count == 0 {
		return biz.ErrFileNotFound
	}
	return types.ErrInvalidTransition
}

// SetContentKey 记录内容对象键
func (r *FileRepo) SetContentKey(ctx context.Context, id, key string) error {
	return r.updateByID(ctx, id, map[string]interface{}{
		"content_key": key,
		"updated_at":  time.Now(),
	}, "set content key")
}

// SetThumbnail 记录缩略图对象键和状态
func (r *FileRepo) SetThumbnail(ctx context.Context, id string, key *string, state types.ThumbnailState) error {
	return r.updateByID(ctx, id, map[string]interface{}{
		"thumbnail_key":   key,
		"thumbnail_state": string(state),
		"updated_at":      time.Now(),
	}, "set thumbnail")
}

// TotalSize 所有者全部文件大小之和
func (r *FileRepo) TotalSize(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := r.conn(ctx).Model(&FilePO{}).
		Select("COALESCE(SUM(size), 0)").
		Where("owner_id = ?", ownerID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum file sizes: %w", err)
	}
	return total, nil
}

func (r *FileRepo) updateByID(ctx context.Context, id string, updates map[string]interface{}, op string) error {
	res := r.conn(ctx).Model(&FilePO{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if database.IsForeignKeyError(res.Error) {
			return biz.ErrGroupNotFound
		}
		return fmt.Errorf("failed to %s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return biz.ErrFileNotFound
	}
	return nil
}

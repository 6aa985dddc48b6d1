package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/storage/types"
	"go.uber.org/zap"
)

// 分组字段长度限制
const (
	MaxGroupNameLength        = 128
	MaxGroupDescriptionLength = 512
)

// Group 文件分组
type Group struct {
	ID          string
	OwnerID     string
	Name        string
	Icon        types.GroupIcon
	Description *string
	// 统计字段，仅查询时填充
	FileCount int64
	TotalSize int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupRepo 分组仓储接口
type GroupRepo interface {
	Create(ctx context.Context, group *Group) error
	// GetByID 返回分组及文件统计
	GetByID(ctx context.Context, id string) (*Group, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Group, error)
	Update(ctx context.Context, group *Group) error
	// Delete 删除分组，组内文件的 group_id 置空
	Delete(ctx context.Context, id string) error
}

// CreateGroupRequest 创建分组请求
type CreateGroupRequest struct {
	OwnerID     string
	Name        string
	Icon        string
	Description string
}

// UpdateGroupRequest 更新分组请求，nil 字段保持不变
type UpdateGroupRequest struct {
	Name        *string
	Icon        *string
	Description *string
}

// GroupUseCase 分组业务逻辑
type GroupUseCase struct {
	groups GroupRepo
	now    Clock
	logger *logger.Logger
}

// NewGroupUseCase 创建分组用例
func NewGroupUseCase(groups GroupRepo, now Clock, log *logger.Logger) *GroupUseCase {
	return &GroupUseCase{
		groups: groups,
		now:    clockOrDefault(now),
		logger: log,
	}
}

// Create 创建分组
func (uc *GroupUseCase) Create(ctx context.Context, req *CreateGroupRequest) (*Group, error) {
	icon := types.GroupIcon(req.Icon)
	if icon == "" {
		icon = types.GroupIconDefault
	}

	now := uc.now()
	group := &Group{
		ID:          uuid.NewString(),
		OwnerID:     req.OwnerID,
		Name:        strings.TrimSpace(req.Name),
		Icon:        icon,
		Description: optional(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateGroup(group); err != nil {
		return nil, err
	}

	if err := uc.groups.Create(ctx, group); err != nil {
		return nil, err
	}

	uc.logger.WithContext(ctx).Info("group created",
		zap.String("group_id", group.ID),
		zap.String("owner_id", group.OwnerID))
	return group, nil
}

// Get 获取分组详情
func (uc *GroupUseCase) Get(ctx context.Context, id string, p *Principal) (*Group, error) {
	return uc.owned(ctx, id, p)
}

// List 列出用户的全部分组
func (uc *GroupUseCase) List(ctx context.Context, ownerID string) ([]*Group, error) {
	return uc.groups.ListByOwner(ctx, ownerID)
}

// Update 更新分组
func (uc *GroupUseCase) Update(ctx context.Context, id string, p *Principal, req *UpdateGroupRequest) (*Group, error) {
	group, err := uc.owned(ctx, id, p)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		group.Name = strings.TrimSpace(*req.Name)
	}
	if req.Icon != nil {
		group.Icon = types.GroupIcon(*req.Icon)
	}
	if req.Description != nil {
		group.Description = optional(*req.Description)
	}
	if err := validateGroup(group); err != nil {
		return nil, err
	}

	group.UpdatedAt = uc.now()
	if err := uc.groups.Update(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// Delete 删除分组，文件保留并移出分组
func (uc *GroupUseCase) Delete(ctx context.Context, id string, p *Principal) error {
	if _, err := uc.owned(ctx, id, p); err != nil {
		return err
	}
	if err := uc.groups.Delete(ctx, id); err != nil {
		return err
	}

	uc.logger.WithContext(ctx).Info("group deleted", zap.String("group_id", id))
	return nil
}

func (uc *GroupUseCase) owned(ctx context.Context, id string, p *Principal) (*Group, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidIdentifier
	}
	group, err := uc.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || group.OwnerID != p.UserID {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

func validateGroup(g *Group) error {
	if g.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidGroup)
	}
	if len([]rune(g.Name)) > MaxGroupNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidGroup, MaxGroupNameLength)
	}
	if !g.Icon.Valid() {
		return fmt.Errorf("%w: unknown icon %q", ErrInvalidGroup, g.Icon)
	}
	if g.Description != nil && len([]rune(*g.Description)) > MaxGroupDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidGroup, MaxGroupDescriptionLength)
	}
	return nil
}

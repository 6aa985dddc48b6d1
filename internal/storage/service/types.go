package service

import (
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"github.com/lk2023060901/skynotes-backend/internal/storage/types"
)

// UpdateFileRequest 更新文件请求；group 为空字符串时移出分组
type UpdateFileRequest struct {
	Name        *string   `json:"name" binding:"omitempty,min=1,max=512"`
	Description *string   `json:"description" binding:"omitempty,max=1024"`
	Tags        *[]string `json:"tags"`
	Group       *string   `json:"group"`
}

// FileResponse 文件响应
type FileResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	Tags           []string  `json:"tags"`
	Group          *string   `json:"group"`
	Size           int64     `json:"size"`
	ContentType    string    `json:"content_type"`
	Status         int       `json:"status"`
	StatusName     string    `json:"status_name"`
	ThumbnailState string    `json:"thumbnail_state"`
	URL            string    `json:"url"`
	ThumbnailURL   *string   `json:"thumbnail_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateShareRequest 创建分享请求
type CreateShareRequest struct {
	SharedUntil *time.Time `json:"shared_until"`
	Password    string     `json:"password" binding:"omitempty,max=72"`
}

// ShareResponse 分享响应
type ShareResponse struct {
	Token       string     `json:"token"`
	IsActive    bool       `json:"is_active"`
	SharedUntil *time.Time `json:"shared_until"`
	HasPassword bool       `json:"has_password"`
	URL         string     `json:"url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AnalyticsResponse 访问记录响应
type AnalyticsResponse struct {
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateGroupRequest 创建分组请求
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Icon        string `json:"icon"`
	Description string `json:"description" binding:"max=512"`
}

// UpdateGroupRequest 更新分组请求
type UpdateGroupRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=128"`
	Icon        *string `json:"icon"`
	Description *string `json:"description" binding:"omitempty,max=512"`
}

// GroupResponse 分组响应
type GroupResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	Description *string   `json:"description"`
	FileCount   int64     `json:"file_count"`
	TotalSize   int64     `json:"total_size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QuotaResponse 配额使用情况
type QuotaResponse struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Available int64 `json:"available"`
}

// SetQuotaRequest 管理员设置配额
type SetQuotaRequest struct {
	Limit int64 `json:"limit" binding:"required,gt=0"`
}

func toFileResponse(f *biz.File) *FileResponse {
	resp := &FileResponse{
		ID:             f.ID,
		Name:           f.Name,
		Description:    f.Description,
		Tags:           f.Tags,
		Group:          f.GroupID,
		Size:           f.Size,
		ContentType:    f.ContentType,
		Status:         int(f.Status),
		StatusName:     f.Status.String(),
		ThumbnailState: string(f.ThumbnailState),
		URL:            "/media/" + f.ID + f.Extension,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if f.ThumbnailState == types.ThumbnailCreated {
		thumb := "/media/" + f.ID + "_thumb"
		resp.ThumbnailURL = &thumb
	}
	return resp
}

func toFileResponses(files []*biz.File) []*FileResponse {
	out := make([]*FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return out
}

func toShareResponse(s *biz.FileShare, url string) *ShareResponse {
	return &ShareResponse{
		Token:       s.Token,
		IsActive:    s.IsActive,
		SharedUntil: s.SharedUntil,
		HasPassword: s.HasPassword(),
		URL:         url,
		CreatedAt:   s.CreatedAt,
	}
}

func toGroupResponse(g *biz.Group) *GroupResponse {
	return &GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Icon:        string(g.Icon),
		Description: g.Description,
		FileCount:   g.FileCount,
		TotalSize:   g.TotalSize,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

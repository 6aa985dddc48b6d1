package data

import (
	"encoding/json"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"github.com/lk2023060901/skynotes-backend/internal/storage/types"
)

// GroupPO 分组数据库模型
type GroupPO struct {
	ID          string    `gorm:"type:uuid;primarykey"`
	OwnerID     string    `gorm:"column:owner_id;size:64;not null;index:idx_group_owner"`
	Name        string    `gorm:"column:name;size:128;not null"`
	Icon        string    `gorm:"column:icon;size:16;not null;default:'default';check:chk_groups_icon_valid,icon IN ('default','music','video','photo','document','archive')"`
	Description *string   `gorm:"column:description;size:512"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (GroupPO) TableName() string {
	return "groups"
}

// FilePO 文件数据库模型
type FilePO struct {
	ID             string    `gorm:"type:uuid;primarykey"`
	OwnerID        string    `gorm:"column:owner_id;size:64;not null;index:idx_file_owner_group"`
	GroupID        *string   `gorm:"column:group_id;type:uuid;index:idx_file_owner_group"`
	Group          *GroupPO  `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL"`
	Name           string    `gorm:"column:name;size:512;not null"`
	Description    *string   `gorm:"column:description;size:1024"`
	Tags           string    `gorm:"column:tags;type:jsonb;not null;default:'[]'"`
	Size           int64     `gorm:"column:size;not null;check:chk_files_size_valid,size > 0"`
	ContentType    string    `gorm:"column:content_type;size:255;not null"`
	Extension      string    `gorm:"column:extension;size:32;not null;default:''"`
	Status         int       `gorm:"column:status;not null;default:0;index:idx_file_status"`
	ContentKey     string    `gorm:"column:content_key;size:500;not null;default:''"`
	ThumbnailKey   *string   `gorm:"column:thumbnail_key;size:500"`
	ThumbnailState string    `gorm:"column:thumbnail_state;size:16;not null;default:'none'"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP;index:idx_file_created"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (FilePO) TableName() string {
	return "files"
}

// FileSharePO 分享数据库模型
type FileSharePO struct {
	ID           string     `gorm:"type:uuid;primarykey"`
	FileID       string     `gorm:"column:file_id;type:uuid;not null;index:idx_share_file"`
	File         *FilePO    `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`
	Token        string     `gorm:"column:token;type:uuid;not null;uniqueIndex:idx_share_token"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	SharedUntil  *time.Time `gorm:"column:shared_until;check:chk_file_shares_shared_until_valid,shared_until > created_at"`
	PasswordHash *string    `gorm:"column:password;size:128"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (FileSharePO) TableName() string {
	return "file_shares"
}

// FileAnalyticsPO 访问记录数据库模型
type FileAnalyticsPO struct {
	ID        string       `gorm:"type:uuid;primarykey"`
	ShareID   string       `gorm:"column:share_id;type:uuid;not null;index:idx_analytics_share"`
	Share     *FileSharePO `gorm:"foreignKey:ShareID;constraint:OnDelete:CASCADE"`
	IP        string       `gorm:"column:ip;size:45"`
	UserAgent string       `gorm:"column:user_agent;size:512"`
	Referer   string       `gorm:"column:referer;size:1024"`
	CreatedAt time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

func (FileAnalyticsPO) TableName() string {
	return "file_analytics"
}

// UserQuotaPO 用户配额
type UserQuotaPO struct {
	UserID     string    `gorm:"column:user_id;size:64;primarykey"`
	LimitBytes int64     `gorm:"column:limit_bytes;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (UserQuotaPO) TableName() string {
	return "user_quotas"
}

// Models 返回需要迁移的模型（按依赖顺序）
func Models() []interface{} {
	return []interface{}{
		&GroupPO{},
		&FilePO{},
		&FileSharePO{},
		&FileAnalyticsPO{},
		&UserQuotaPO{},
	}
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeTags(s string) []string {
	tags := []string{}
	if s != "" && s != "[]" {
		_ = json.Unmarshal([]byte(s), &tags)
	}
	return tags
}

func fileToPO(f *biz.File) *FilePO {
	return &FilePO{
		ID:             f.ID,
		OwnerID:        f.OwnerID,
		GroupID:        f.GroupID,
		Name:           f.Name,
		Description:    f.Description,
		Tags:           encodeTags(f.Tags),
		Size:           f.Size,
		ContentType:    f.ContentType,
		Extension:      f.Extension,
		Status:         int(f.Status),
		ContentKey:     f.ContentKey,
		ThumbnailKey:   f.ThumbnailKey,
		ThumbnailState: string(f.ThumbnailState),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func fileToDomain(po *FilePO) *biz.File {
	state := types.ThumbnailState(po.ThumbnailState)
	if !state.Valid() {
		state = types.ThumbnailNone
	}
	return &biz.File{
		ID:             po.ID,
		OwnerID:        po.OwnerID,
		GroupID:        po.GroupID,
		Name:           po.Name,
		Description:    po.Description,
		Tags:           decodeTags(po.Tags),
		Size:           po.Size,
		ContentType:    po.ContentType,
		Extension:      po.Extension,
		Status:         types.FileStatus(po.Status),
		ContentKey:     po.ContentKey,
		ThumbnailKey:   po.ThumbnailKey,
		ThumbnailState: state,
		CreatedAt:      po.CreatedAt,
		UpdatedAt:      po.UpdatedAt,
	}
}

func shareToPO(s *biz.FileShare) *FileSharePO {
	po := &FileSharePO{
		ID:          s.ID,
		FileID:      s.FileID,
		Token:       s.Token,
		IsActive:    s.IsActive,
		SharedUntil: s.SharedUntil,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.PasswordHash != "" {
		hash := s.PasswordHash
		po.PasswordHash = &hash
	}
	return po
}

func shareToDomain(po *FileSharePO) *biz.FileShare {
	s := &biz.FileShare{
		ID:          po.ID,
		FileID:      po.FileID,
		Token:       po.Token,
		IsActive:    po.IsActive,
		SharedUntil: po.SharedUntil,
		CreatedAt:   po.CreatedAt,
		UpdatedAt:   po.UpdatedAt,
	}
	if po.PasswordHash != nil {
		s.PasswordHash = *po.PasswordHash
	}
	return s
}

func groupToPO(g *biz.Group) *GroupPO {
	return &GroupPO{
		ID:          g.ID,
		OwnerID:     g.OwnerID,
		Name:        g.Name,
		Icon:        string(g.Icon),
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// groupRow 分组及统计查询结果
type groupRow struct {
	GroupPO   `gorm:"embedded"`
	FileCount int64 `gorm:"column:file_count"`
	TotalSize int64 `gorm:"column:total_size"`
}

func groupToDomain(row *groupRow) *biz.Group {
	return &biz.Group{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Name:        row.Name,
		Icon:        types.GroupIcon(row.Icon),
		Description: row.Description,
		FileCount:   row.FileCount,
		TotalSize:   row.TotalSize,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

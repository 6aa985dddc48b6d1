package biz

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/eventbus"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/storage/types"
	"go.uber.org/zap"
)

// 字段长度限制
const (
	MaxFileNameLength    = 512
	MaxDescriptionLength = 1024
	MaxTags              = 6
	MaxTagLength         = 16
)

// File 文件领域模型
type File struct {
	ID             string
	OwnerID        string
	GroupID        *string
	Name           string
	Description    *string
	Tags           []string
	Size           int64
	ContentType    string
	Extension      string
	Status         types.FileStatus
	ContentKey     string
	ThumbnailKey   *string
	ThumbnailState types.ThumbnailState
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Principal 当前请求的身份
type Principal struct {
	UserID  string
	IsStaff bool
}

// Owns 判断是否为文件所有者
func (p *Principal) Owns(f *File) bool {
	return p != nil && f != nil && p.UserID == f.OwnerID
}

// CanRead 所有者或管理员可直接访问
func (p *Principal) CanRead(f *File) bool {
	return p != nil && (p.IsStaff || p.Owns(f))
}

// ContentKey 文件内容的对象键
func ContentKey(fileID, ext string) string {
	return "files/" + fileID + ext
}

// ThumbnailKey 缩略图的对象键
func ThumbnailKey(fileID string) string {
	return "thumbnails/" + fileID + ".png"
}

// FileRepo 文件仓储接口
type FileRepo interface {
	Create(ctx context.Context, file *File) error
	GetByID(ctx context.Context, id string) (*File, error)
	// ListByOwner groupID 为 nil 时返回未分组文件
	ListByOwner(ctx context.Context, ownerID string, groupID *string) ([]*File, error)
	Update(ctx context.Context, file *File) error
	Delete(ctx context.Context, id string) error
	// AdvanceStatus 仅当当前状态为 from 时更新为 to
	AdvanceStatus(ctx context.Context, id string, from, to types.FileStatus) error
	SetContentKey(ctx context.Context, id, key string) error
	SetThumbnail(ctx context.Context, id string, key *string, state types.ThumbnailState) error
	TotalSize(ctx context.Context, ownerID string) (int64, error)
}

// BlobStore 对象存储接口
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Open(ctx context.Context, key string) (*Blob, error)
	Delete(ctx context.Context, key string) error
}

// UploadFileRequest 上传请求
type UploadFileRequest struct {
	OwnerID     string
	Name        string
	Description string
	Tags        []string
	GroupID     string
	FileName    string
	ContentType string
	Content     []byte
}

// UpdateFileRequest 更新请求，nil 字段保持不变
type UpdateFileRequest struct {
	Name        *string
	Description *string
	Tags        *[]string
	// GroupID 为空字符串时移出分组
	GroupID *string
}

// FileUseCase 文件业务逻辑
type FileUseCase struct {
	files         FileRepo
	groups        GroupRepo
	blobs         BlobStore
	quota         *QuotaGuard
	bus           *eventbus.Bus[FileEvent]
	maxUploadSize int64
	now           Clock
	logger        *logger.Logger
}

// NewFileUseCase 创建文件用例
func NewFileUseCase(
	files FileRepo,
	groups GroupRepo,
	blobs BlobStore,
	quota *QuotaGuard,
	bus *eventbus.Bus[FileEvent],
	maxUploadSize int64,
	now Clock,
	log *logger.Logger,
) *FileUseCase {
	return &FileUseCase{
		files:         files,
		groups:        groups,
		blobs:         blobs,
		quota:         quota,
		bus:           bus,
		maxUploadSize: maxUploadSize,
		now:           clockOrDefault(now),
		logger:        log,
	}
}

// Upload 创建文件记录并发布 file:created 事件，内容由流水线异步持久化
func (uc *FileUseCase) Upload(ctx context.Context, req *UploadFileRequest) (*File, error) {
	size := int64(len(req.Content))
	if size == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidFile)
	}
	if uc.maxUploadSize > 0 && size > uc.maxUploadSize {
		return nil, ErrFileTooLarge
	}

	ext := fileExtension(req.FileName, req.ContentType)
	name := displayName(req.Name, req.FileName, ext)
	tags := normalizeTags(req.Tags)
	if err := validateFileFields(name, req.Description, tags); err != nil {
		return nil, err
	}

	var groupID *string
	if req.GroupID != "" {
		if _, err := uc.ownedGroup(ctx, req.GroupID, req.OwnerID); err != nil {
			return nil, err
		}
		groupID = &req.GroupID
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	now := uc.now()
	file := &File{
		ID:             uuid.NewString(),
		OwnerID:        req.OwnerID,
		GroupID:        groupID,
		Name:           name,
		Description:    optional(req.Description),
		Tags:           tags,
		Size:           size,
		ContentType:    contentType,
		Extension:      ext,
		Status:         types.StatusRequested,
		ThumbnailState: types.ThumbnailNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := uc.quota.Admit(ctx, req.OwnerID, size, func(ctx context.Context) error {
		return uc.files.Create(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	log := uc.logger.WithContext(ctx).With(zap.String("file_id", file.ID))
	log.Info("file created", zap.Int64("size", size), zap.String("extension", ext))

	event := FileEvent{FileID: file.ID, Extension: ext, Content: req.Content}
	if err := uc.bus.Emit(ctx, types.EventFileCreated, event); err != nil {
		log.Error("failed to dispatch file:created", zap.Error(err))
		// 记录已提交，投递失败时删除，避免无内容的记录占用配额
		if derr := uc.files.Delete(ctx, file.ID); derr != nil && !errors.Is(derr, ErrFileNotFound) {
			log.Error("failed to remove undispatched file", zap.Error(derr))
		}
		return nil, fmt.Errorf("dispatch %s: %w", types.EventFileCreated, err)
	}

	return file, nil
}

// Get 获取文件详情（所有者或管理员）
func (uc *FileUseCase) Get(ctx context.Context, id string, p *Principal) (*File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidIdentifier
	}
	file, err := uc.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanRead(file) {
		return nil, ErrForbidden
	}
	return file, nil
}

// List 列出所有者的文件；groupID 为空时列出未分组文件
func (uc *FileUseCase) List(ctx context.Context, ownerID, groupID string) ([]*File, error) {
	if groupID == "" {
		return uc.files.ListByOwner(ctx, ownerID, nil)
	}
	if _, err := uc.ownedGroup(ctx, groupID, ownerID); err != nil {
		return nil, err
	}
	return uc.files.ListByOwner(ctx, ownerID, &groupID)
}

// Update 更新文件元数据（仅所有者）
func (uc *FileUseCase) Update(ctx context.Context, id string, p *Principal, req *UpdateFileRequest) (*File, error) {
	file, err := uc.owned(ctx, id, p)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		file.Name = displayName(*req.Name, file.Name, file.Extension)
	}
	if req.Description != nil {
		file.Description = optional(*req.Description)
	}
	if req.Tags != nil {
		file.Tags = normalizeTags(*req.Tags)
	}
	description := ""
	if file.Description != nil {
		description = *file.Description
	}
	if err := validateFileFields(file.Name, description, file.Tags); err != nil {
		return nil, err
	}

	if req.GroupID != nil {
		if *req.GroupID == "" {
			file.GroupID = nil
		} else {
			if _, err := uc.ownedGroup(ctx, *req.GroupID, file.OwnerID); err != nil {
				return nil, err
			}
			gid := *req.GroupID
			file.GroupID = &gid
		}
	}

	file.UpdatedAt = uc.now()
	if err := uc.files.Update(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

// Delete 删除文件及其对象（仅所有者）
func (uc *FileUseCase) Delete(ctx context.Context, id string, p *Principal) error {
	file, err := uc.owned(ctx, id, p)
	if err != nil {
		return err
	}

	if err := uc.files.Delete(ctx, id); err != nil {
		return err
	}

	keys := make([]string, 0, 2)
	if file.ContentKey != "" {
		keys = append(keys, file.ContentKey)
	}
	if file.ThumbnailKey != nil {
		keys = append(keys, *file.ThumbnailKey)
	}
	for _, key := range keys {
		if err := uc.blobs.Delete(ctx, key); err != nil && !errors.Is(err, ErrBlobNotFound) {
			// 记录已删除，对象残留只记录日志
			uc.logger.WithContext(ctx).Warn("failed to delete object",
				zap.String("file_id", id),
				zap.String("key", key),
				zap.Error(err))
		}
	}

	uc.logger.WithContext(ctx).Info("file deleted", zap.String("file_id", id))
	return nil
}

func (uc *FileUseCase) owned(ctx context.Context, id string, p *Principal) (*File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidIdentifier
	}
	file, err := uc.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Owns(file) {
		return nil, ErrForbidden
	}
	return file, nil
}

func (uc *FileUseCase) ownedGroup(ctx context.Context, groupID, ownerID string) (*Group, error) {
	if _, err := uuid.Parse(groupID); err != nil {
		return nil, ErrInvalidIdentifier
	}
	group, err := uc.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != ownerID {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// extensionPattern 扩展名会拼入对象键，只接受短的字母数字
var extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// fileExtension 优先使用文件名的扩展名，其次根据 MIME 类型推断，都不合法时为空
func fileExtension(fileName, contentType string) string {
	if ext := strings.ToLower(path.Ext(fileName)); extensionPattern.MatchString(ext) {
		return ext
	}
	if contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil {
			for _, ext := range exts {
				if extensionPattern.MatchString(ext) {
					return ext
				}
			}
		}
	}
	return ""
}

// displayName 显示名缺少扩展名时补全
func displayName(name, fallback, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = path.Base(fallback)
		if name == "." || name == "/" {
			name = ""
		}
	}
	if ext != "" && name != "" && !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return name
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

func validateFileFields(name, description string, tags []string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFile)
	}
	if len([]rune(name)) > MaxFileNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidFile, MaxFileNameLength)
	}
	if len([]rune(description)) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidFile, MaxDescriptionLength)
	}
	for _, tag := range tags {
		if len([]rune(tag)) > MaxTagLength {
			return fmt.Errorf("%w: tag %q exceeds %d characters", ErrInvalidFile, tag, MaxTagLength)
		}
	}
	return nil
}

// optional 空字符串存为 NULL
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

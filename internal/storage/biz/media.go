package biz

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

const thumbnailSuffix = "_thumb"

// Blob 打开的对象
type Blob struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// MediaRequest 媒体访问请求
type MediaRequest struct {
	Path      string
	Token     string
	Password  string
	Principal *Principal // 未登录时为 nil
	IP        string
	UserAgent string
	Referer   string
}

// Media 可直接返回给客户端的内容
type Media struct {
	*Blob
	FileName string
}

// ParseMediaPath 解析 <uuid>、<uuid>.<ext> 或 <uuid>_thumb
func ParseMediaPath(p string) (fileID string, thumbnail bool, err error) {
	p = strings.TrimPrefix(p, "/")
	if strings.HasSuffix(p, thumbnailSuffix) {
		p = strings.TrimSuffix(p, thumbnailSuffix)
		thumbnail = true
	}
	if i := strings.IndexByte(p, '.'); i >= 0 {
		if thumbnail {
			return "", false, ErrInvalidIdentifier
		}
		p = p[:i]
	}
	id, err := uuid.Parse(p)
	if err != nil {
		return "", false, ErrInvalidIdentifier
	}
	return id.String(), thumbnail, nil
}

// MediaUseCase 媒体访问：所有者/管理员直接访问，或凭分享令牌访问
type MediaUseCase struct {
	files    FileRepo
	blobs    BlobStore
	shares   *ShareUseCase
	recorder *AnalyticsRecorder
	logger   *logger.Logger
}

// NewMediaUseCase 创建媒体用例
func NewMediaUseCase(files FileRepo, blobs BlobStore, shares *ShareUseCase, recorder *AnalyticsRecorder, log *logger.Logger) *MediaUseCase {
	return &MediaUseCase{
		files:    files,
		blobs:    blobs,
		shares:   shares,
		recorder: recorder,
		logger:   log,
	}
}

// Open 校验权限并打开文件内容或缩略图。
// 只有令牌访问会产生访问记录。
func (uc *MediaUseCase) Open(ctx context.Context, req *MediaRequest) (*Media, error) {
	fileID, thumbnail, err := ParseMediaPath(req.Path)
	if err != nil {
		return nil, err
	}

	// 所有者或管理员直接访问
	var known bool
	if req.Principal != nil {
		file, err := uc.files.GetByID(ctx, fileID)
		switch {
		case err == nil:
			known = true
			if req.Principal.CanRead(file) {
				return uc.open(ctx, file, thumbnail)
			}
		case !errors.Is(err, ErrFileNotFound):
			return nil, err
		}
	}

	if req.Token == "" {
		if req.Principal != nil && !known {
			return nil, ErrFileNotFound
		}
		return nil, ErrForbidden
	}

	share, err := uc.shares.ResolveAccess(ctx, fileID, req.Token, req.Password)
	if err != nil {
		return nil, err
	}
	file, err := uc.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}

	media, err := uc.open(ctx, file, thumbnail)
	if err != nil {
		return nil, err
	}

	uc.recorder.Record(ctx, AccessInfo{
		ShareID:   share.ID,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Referer:   req.Referer,
	})
	return media, nil
}

func (uc *MediaUseCase) open(ctx context.Context, file *File, thumbnail bool) (*Media, error) {
	key := file.ContentKey
	name := file.Name
	if thumbnail {
		key = ""
		if file.ThumbnailKey != nil {
			key = *file.ThumbnailKey
		}
		name = strings.TrimSuffix(file.Name, file.Extension) + thumbnailSuffix + ".png"
	}
	// 内容尚未持久化或缩略图不存在
	if key == "" {
		return nil, ErrFileNotFound
	}

	blob, err := uc.blobs.Open(ctx, key)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			uc.logger.WithContext(ctx).Warn("object missing for file",
				zap.String("file_id", file.ID),
				zap.String("key", key))
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if blob.ContentType == "" {
		blob.ContentType = file.ContentType
		if thumbnail {
			blob.ContentType = "image/png"
		}
	}
	return &Media{Blob: blob, FileName: name}, nil
}

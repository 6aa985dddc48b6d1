package biz

import (
	"errors"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/thumbnailer"
)

// 文件相关错误
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidFile       = errors.New("invalid file parameters")
	ErrFileTooLarge      = errors.New("file too large")
	ErrQuotaExceeded     = errors.New("storage quota exceeded")
)

// 对象存储错误
var (
	ErrBlobNotFound = errors.New("blob not found")
)

// 分组相关错误
var (
	ErrGroupNotFound = errors.New("group not found")
	ErrInvalidGroup  = errors.New("invalid group parameters")
)

// 分享相关错误
var (
	ErrShareNotFound     = errors.New("share not found")
	ErrShareExpiryInPast = errors.New("share expiry must be in the future")
	// ErrAccessDenied 令牌无效、已撤销、已过期或密码错误，对外不区分原因
	ErrAccessDenied = errors.New("access denied")
)

// 上游服务错误
var (
	ErrUpstreamUnavailable = thumbnailer.ErrUnavailable
)

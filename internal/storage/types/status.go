package types

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition 当前状态不接受该事件
var ErrInvalidTransition = errors.New("invalid status transition")

// FileStatus 文件处理状态（数值与存储表示一致）
type FileStatus int

const (
	// StatusRequested 已创建，内容尚未持久化
	StatusRequested FileStatus = 0
	// StatusProcessing 内容持久化中
	StatusProcessing FileStatus = 1
	// StatusThumbnailCreation 缩略图生成中
	StatusThumbnailCreation FileStatus = 2
	// StatusCompleted 处理完成（缩略图可能失败）
	StatusCompleted FileStatus = 4
)

// Valid 检查状态是否有效
func (s FileStatus) Valid() bool {
	switch s {
	case StatusRequested, StatusProcessing, StatusThumbnailCreation, StatusCompleted:
		return true
	}
	return false
}

// String 返回状态名称
func (s FileStatus) String() string {
	switch s {
	case StatusRequested:
		return "REQUESTED"
	case StatusProcessing:
		return "PROCESSING"
	case StatusThumbnailCreation:
		return "THUMBNAIL_CREATION"
	case StatusCompleted:
		return "COMPLETED"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// Event 流水线事件名称
type Event = string

const (
	EventFileCreated          Event = "file:created"
	EventFileUploaded         Event = "file:uploaded"
	EventFileThumbnailCreated Event = "file:thumbnail_created"
	EventFileThumbnailFailed  Event = "file:thumbnail_failed"
)

// NextStatus 根据当前状态和事件计算下一个状态。
// 状态只前进不回退，其余组合返回 ErrInvalidTransition。
func NextStatus(current FileStatus, event Event) (FileStatus, error) {
	switch {
	case current == StatusRequested && event == EventFileCreated:
		return StatusProcessing, nil
	case current == StatusProcessing && event == EventFileUploaded:
		return StatusThumbnailCreation, nil
	case current == StatusThumbnailCreation &&
		(event == EventFileThumbnailCreated || event == EventFileThumbnailFailed):
		return StatusCompleted, nil
	}
	return current, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, current)
}

// ThumbnailState 缩略图生成结果
type ThumbnailState string

const (
	// ThumbnailNone 尚未尝试
	ThumbnailNone ThumbnailState = "none"
	// ThumbnailCreated 已生成
	ThumbnailCreated ThumbnailState = "created"
	// ThumbnailFailed 生成失败
	ThumbnailFailed ThumbnailState = "failed"
)

// Valid 检查缩略图状态是否有效
func (s ThumbnailState) Valid() bool {
	switch s {
	case ThumbnailNone, ThumbnailCreated, ThumbnailFailed:
		return true
	}
	return false
}

// GroupIcon 分组图标
type GroupIcon string

const (
	GroupIconDefault  GroupIcon = "default"
	GroupIconMusic    GroupIcon = "music"
	GroupIconVideo    GroupIcon = "video"
	GroupIconPhoto    GroupIcon = "photo"
	GroupIconDocument GroupIcon = "document"
	GroupIconArchive  GroupIcon = "archive"
)

// Valid 检查图标是否有效
func (i GroupIcon) Valid() bool {
	switch i {
	case GroupIconDefault, GroupIconMusic, GroupIconVideo, GroupIconPhoto, GroupIconDocument, GroupIconArchive:
		return true
	}
	return false
}

// GroupIcons 全部可选图标，用于数据库约束
func GroupIcons() []GroupIcon {
	return []GroupIcon{GroupIconDefault, GroupIconMusic, GroupIconVideo, GroupIconPhoto, GroupIconDocument, GroupIconArchive}
}

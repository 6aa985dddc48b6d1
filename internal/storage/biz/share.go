package biz

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// FileShare 文件分享
type FileShare struct {
	ID           string
	FileID       string
	Token        string
	IsActive     bool
	SharedUntil  *time.Time
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword 是否设置了访问密码
func (s *FileShare) HasPassword() bool {
	return s.PasswordHash != ""
}

// ShareRepo 分享仓储接口
type ShareRepo interface {
	Create(ctx context.Context, share *FileShare) error
	ListByFile(ctx context.Context, fileID string) ([]*FileShare, error)
	// GetByToken 返回令牌对应的分享（包括已撤销的）
	GetByToken(ctx context.Context, fileID, token string) (*FileShare, error)
	// GetActive 仅返回有效分享，否则 ErrShareNotFound
	GetActive(ctx context.Context, fileID, token string) (*FileShare, error)
	// Deactivate 条件更新 is_active=true → false；无匹配时返回 ErrShareNotFound
	Deactivate(ctx context.Context, fileID, token string) error
}

// CreateShareRequest 创建分享请求
type CreateShareRequest struct {
	SharedUntil *time.Time
	Password    string
}

// ShareLink 分享结果
type ShareLink struct {
	Share *FileShare
	URL   string
}

// ShareUseCase 分享与访问控制
type ShareUseCase struct {
	files         FileRepo
	shares        ShareRepo
	analytics     AnalyticsRepo
	publicBaseURL string
	now           Clock
	logger        *logger.Logger
}

// NewShareUseCase 创建分享用例
func NewShareUseCase(
	files FileRepo,
	shares ShareRepo,
	analytics AnalyticsRepo,
	publicBaseURL string,
	now Clock,
	log *logger.Logger,
) *ShareUseCase {
	return &ShareUseCase{
		files:         files,
		shares:        shares,
		analytics:     analytics,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           clockOrDefault(now),
		logger:        log,
	}
}

// CreateShare 为文件创建分享令牌（仅所有者）
func (uc *ShareUseCase) CreateShare(ctx context.Context, fileID string, p *Principal, req *CreateShareRequest) (*ShareLink, error) {
	if _, err := uc.ownedFile(ctx, fileID, p); err != nil {
		return nil, err
	}

	now := uc.now()
	if req.SharedUntil != nil && !req.SharedUntil.After(now) {
		return nil, ErrShareExpiryInPast
	}

	share := &FileShare{
		ID:          uuid.NewString(),
		FileID:      fileID,
		Token:       uuid.NewString(),
		IsActive:    true,
		SharedUntil: req.SharedUntil,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash share password: %w", err)
		}
		share.PasswordHash = string(hash)
	}

	if err := uc.shares.Create(ctx, share); err != nil {
		return nil, err
	}

	uc.logger.WithContext(ctx).Info("share created",
		zap.String("file_id", fileID),
		zap.String("share_id", share.ID),
		zap.Bool("password", share.HasPassword()),
		zap.Bool("expires", share.SharedUntil != nil))

	return &ShareLink{Share: share, URL: uc.ShareURL(fileID, share.Token, req.Password)}, nil
}

// ShareURL 拼接公开访问地址 <base>/media/<fileId>?token=<token>[&password=<pw>]
func (uc *ShareUseCase) ShareURL(fileID, token, password string) string {
	var b strings.Builder
	b.WriteString(uc.publicBaseURL)
	b.WriteString("/media/")
	b.WriteString(fileID)
	b.WriteString("?token=")
	b.WriteString(url.QueryEscape(token))
	if password != "" {
		b.WriteString("&password=")
		b.WriteString(url.QueryEscape(password))
	}
	return b.String()
}

// ListShares 列出文件的分享（仅所有者）
func (uc *ShareUseCase) ListShares(ctx context.Context, fileID string, p *Principal) ([]*FileShare, error) {
	if _, err := uc.ownedFile(ctx, fileID, p); err != nil {
		return nil, err
	}
	return uc.shares.ListByFile(ctx, fileID)
}

// Revoke 撤销分享（仅所有者），撤销不可逆
func (uc *ShareUseCase) Revoke(ctx context.Context, fileID, token string, p *Principal) error {
	if _, err := uc.ownedFile(ctx, fileID, p); err != nil {
		return err
	}
	if _, err := uuid.Parse(token); err != nil {
		return ErrShareNotFound
	}
	if err := uc.shares.Deactivate(ctx, fileID, token); err != nil {
		return err
	}

	uc.logger.WithContext(ctx).Info("share revoked", zap.String("file_id", fileID))
	return nil
}

// ResolveAccess 校验令牌访问。任何拒绝原因都返回 ErrAccessDenied。
func (uc *ShareUseCase) ResolveAccess(ctx context.Context, fileID, token, password string) (*FileShare, error) {
	share, reason, err := uc.resolve(ctx, fileID, token, password)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		metrics.ShareResolutions.WithLabelValues(reason).Inc()
		uc.logger.WithContext(ctx).Debug("share access denied",
			zap.String("file_id", fileID),
			zap.String("reason", reason))
		return nil, ErrAccessDenied
	}
	metrics.ShareResolutions.WithLabelValues("granted").Inc()
	return share, nil
}

func (uc *ShareUseCase) resolve(ctx context.Context, fileID, token, password string) (*FileShare, string, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, "malformed_token", nil
	}
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, "malformed_file", nil
	}

	share, err := uc.shares.GetActive(ctx, fileID, token)
	if errors.Is(err, ErrShareNotFound) {
		return nil, "no_active_share", nil
	}
	if err != nil {
		return nil, "", err
	}

	if share.SharedUntil != nil && !uc.now().Before(*share.SharedUntil) {
		return nil, "expired", nil
	}
	if share.HasPassword() {
		if bcrypt.CompareHashAndPassword([]byte(share.PasswordHash), []byte(password)) != nil {
			return nil, "password_mismatch", nil
		}
	}
	return share, "", nil
}

// Analytics 查询分享的访问记录（仅所有者）
func (uc *ShareUseCase) Analytics(ctx context.Context, fileID, token string, p *Principal) ([]*FileAnalytics, error) {
	if _, err := uc.ownedFile(ctx, fileID, p); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrShareNotFound
	}
	share, err := uc.shares.GetByToken(ctx, fileID, token)
	if err != nil {
		return nil, err
	}
	return uc.analytics.ListByShare(ctx, share.ID)
}

func (uc *ShareUseCase) ownedFile(ctx context.Context, fileID string, p *Principal) (*File, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, ErrInvalidIdentifier
	}
	file, err := uc.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !p.Owns(file) {
		return nil, ErrForbidden
	}
	return file, nil
}

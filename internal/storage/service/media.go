package service

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
)

// MediaService 文件内容下载，支持登录用户直接访问和分享令牌访问
type MediaService struct {
	uc     *biz.MediaUseCase
	logger *logger.Logger
}

// NewMediaService 创建媒体服务
func NewMediaService(uc *biz.MediaUseCase, log *logger.Logger) *MediaService {
	return &MediaService{uc: uc, logger: log}
}

// Serve GET /media/:path?token=&password=
func (s *MediaService) Serve(c *gin.Context) {
	m, err := s.uc.Open(c.Request.Context(), &biz.MediaRequest{
		Path:      c.Param("path"),
		Token:     c.Query("token"),
		Password:  c.Query("password"),
		Principal: principal(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	})
	if err != nil {
		handleError(c, s.logger, err)
		return
	}
	defer m.Body.Close()

	headers := map[string]string{
		"Content-Disposition": mime.FormatMediaType("inline", map[string]string{"filename": m.FileName}),
		"Cache-Control":       "private, no-store",
	}
	c.DataFromReader(http.StatusOK, m.Size, m.ContentType, m.Body, headers)
}

// RegisterRoutes 注册媒体路由；认证可选，令牌通过查询参数传递
func (s *MediaService) RegisterRoutes(r gin.IRoutes) {
	r.GET("/media/:path", s.Serve)
}

package service

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/response"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
)

// ShareService 分享 HTTP 服务
type ShareService struct {
	uc     *biz.ShareUseCase
	logger *logger.Logger
}

// NewShareService 创建分享服务
func NewShareService(uc *biz.ShareUseCase, log *logger.Logger) *ShareService {
	return &ShareService{uc: uc, logger: log}
}

// Create 为文件创建分享链接
func (s *ShareService) Create(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req CreateShareRequest
	// 请求体可以为空
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	link, err := s.uc.CreateShare(c.Request.Context(), c.Param("id"), p, &biz.CreateShareRequest{
		SharedUntil: req.SharedUntil,
		Password:    req.Password,
	})
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.Created(c, toShareResponse(link.Share, link.URL))
}

// List 列出文件的分享
func (s *ShareService) List(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	fileID := c.Param("id")
	shares, err := s.uc.ListShares(c.Request.Context(), fileID, p)
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	out := make([]*ShareResponse, 0, len(shares))
	for _, share := range shares {
		// 列表中不含密码明文
		out = append(out, toShareResponse(share, s.uc.ShareURL(fileID, share.Token, "")))
	}
	response.Success(c, out)
}

// Revoke 撤销分享
func (s *ShareService) Revoke(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	if err := s.uc.Revoke(c.Request.Context(), c.Param("id"), c.Param("token"), p); err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.NoContent(c)
}

// Analytics 查看分享的访问记录
func (s *ShareService) Analytics(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	records, err := s.uc.Analytics(c.Request.Context(), c.Param("id"), c.Param("token"), p)
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	out := make([]*AnalyticsResponse, 0, len(records))
	for _, r := range records {
		out = append(out, &AnalyticsResponse{
			IP:        r.IP,
			UserAgent: r.UserAgent,
			Referer:   r.Referer,
			CreatedAt: r.CreatedAt,
		})
	}
	response.Success(c, out)
}

// RegisterRoutes 注册分享路由（需要认证）
func (s *ShareService) RegisterRoutes(r *gin.RouterGroup) {
	shares := r.Group("/files/:id/shares")
	{
		shares.POST("", s.Create)
		shares.GET("", s.List)
		shares.DELETE("/:token", s.Revoke)
		shares.GET("/:token/analytics", s.Analytics)
	}
}

package service

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/response"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
)

// QuotaService 配额 HTTP 服务
type QuotaService struct {
	guard  *biz.QuotaGuard
	logger *logger.Logger
}

// NewQuotaService 创建配额服务
func NewQuotaService(guard *biz.QuotaGuard, log *logger.Logger) *QuotaService {
	return &QuotaService{guard: guard, logger: log}
}

// Usage 当前用户的配额使用情况
func (s *QuotaService) Usage(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	usage, err := s.guard.Usage(c.Request.Context(), p.UserID)
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	available := usage.Limit - usage.Used
	if available < 0 {
		available = 0
	}
	response.Success(c, &QuotaResponse{
		Used:      usage.Used,
		Limit:     usage.Limit,
		Available: available,
	})
}

// SetLimit 管理员设置用户配额
func (s *QuotaService) SetLimit(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req SetQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	userID := c.Param("user_id")
	if err := s.guard.SetLimit(c.Request.Context(), p, userID, req.Limit); err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.Success(c, gin.H{"user_id": userID, "limit": req.Limit})
}

// RegisterRoutes 注册配额路由（需要认证），adminMiddleware 作用于 /admin 分组
func (s *QuotaService) RegisterRoutes(r *gin.RouterGroup, adminMiddleware ...gin.HandlerFunc) {
	r.GET("/quota", s.Usage)

	admin := r.Group("/admin", adminMiddleware...)
	admin.PUT("/quotas/:user_id", s.SetLimit)
}

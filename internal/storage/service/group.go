package service

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/response"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
)

// GroupService 分组 HTTP 服务
type GroupService struct {
	uc     *biz.GroupUseCase
	logger *logger.Logger
}

// NewGroupService 创建分组服务
func NewGroupService(uc *biz.GroupUseCase, log *logger.Logger) *GroupService {
	return &GroupService{uc: uc, logger: log}
}

// Create 创建分组
func (s *GroupService) Create(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	group, err := s.uc.Create(c.Request.Context(), &biz.CreateGroupRequest{
		OwnerID:     p.UserID,
		Name:        req.Name,
		Icon:        req.Icon,
		Description: req.Description,
	})
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.Created(c, toGroupResponse(group))
}

// List 列出分组
func (s *GroupService) List(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	groups, err := s.uc.List(c.Request.Context(), p.UserID)
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	out := make([]*GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	response.Success(c, out)
}

// Get 获取分组详情
func (s *GroupService) Get(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	group, err := s.uc.Get(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.Success(c, toGroupResponse(group))
}

// Update 更新分组
func (s *GroupService) Update(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	group, err := s.uc.Update(c.Request.Context(), c.Param("id"), p, &biz.UpdateGroupRequest{
		Name:        req.Name,
		Icon:        req.Icon,
		Description: req.Description,
	})
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.Success(c, toGroupResponse(group))
}

// Delete 删除分组，组内文件保留
func (s *GroupService) Delete(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	if err := s.uc.Delete(c.Request.Context(), c.Param("id"), p); err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.NoContent(c)
}

// RegisterRoutes 注册分组路由（需要认证）
func (s *GroupService) RegisterRoutes(r *gin.RouterGroup) {
	groups := r.Group("/groups")
	{
		groups.POST("", s.Create)
		groups.GET("", s.List)
		groups.GET("/:id", s.Get)
		groups.PATCH("/:id", s.Update)
		groups.DELETE("/:id", s.Delete)
	}
}

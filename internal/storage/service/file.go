package service

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/skynotes-backend/internal/pkg/errors"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/response"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
)

// multipart 表单字段之外的开销
const formOverhead = 1 << 20

// FileService 文件 HTTP 服务
type FileService struct {
	uc            *biz.FileUseCase
	maxUploadSize int64
	logger        *logger.Logger
}

// NewFileService 创建文件服务
func NewFileService(uc *biz.FileUseCase, maxUploadSize int64, log *logger.Logger) *FileService {
	return &FileService{
		uc:            uc,
		maxUploadSize: maxUploadSize,
		logger:        log,
	}
}

// Upload 上传文件，内容异步处理，返回 202
func (s *FileService) Upload(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	if s.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize+formOverhead)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.ErrorWithCode(c, apperrors.ErrFileTooLarge)
			return
		}
		response.ErrorWithCode(c, apperrors.ErrFileInvalidInput, "multipart field 'file' is required")
		return
	}

	f, err := fh.Open()
	if err != nil {
		handleError(c, s.logger, err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	file, err := s.uc.Upload(c.Request.Context(), &biz.UploadFileRequest{
		OwnerID:     p.UserID,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Tags:        formTags(c.PostFormArray("tags")),
		GroupID:     c.PostForm("group"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.Accepted(c, toFileResponse(file))
}

// List 列出未分组文件
func (s *FileService) List(c *gin.Context) {
	s.list(c, "")
}

// ListByGroup 列出分组内的文件
func (s *FileService) ListByGroup(c *gin.Context) {
	s.list(c, c.Param("group_id"))
}

func (s *FileService) list(c *gin.Context, groupID string) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	files, err := s.uc.List(c.Request.Context(), p.UserID, groupID)
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.Success(c, toFileResponses(files))
}

// Get 获取文件详情
func (s *FileService) Get(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	file, err := s.uc.Get(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.Success(c, toFileResponse(file))
}

// Update 更新文件元数据
func (s *FileService) Update(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	file, err := s.uc.Update(c.Request.Context(), c.Param("id"), p, &biz.UpdateFileRequest{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		GroupID:     req.Group,
	})
	if err != nil {
		handleError(c, s.logger, err)
		return
	}

	response.Success(c, toFileResponse(file))
}

// Delete 删除文件
func (s *FileService) Delete(c *gin.Context) {
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

// formTags 支持重复字段和逗号分隔两种写法
func formTags(values []string) []string {
	var tags []string
	for _, v := range values {
		tags = append(tags, strings.Split(v, ",")...)
	}
	return tags
}

// RegisterRoutes 注册文件路由（需要认证）
func (s *FileService) RegisterRoutes(r *gin.RouterGroup) {
	files := r.Group("/files")
	{
		files.POST("", s.Upload)
		files.GET("", s.List)
		files.GET("/group/:group_id", s.ListByGroup)
		files.GET("/:id", s.Get)
		files.PATCH("/:id", s.Update)
		files.DELETE("/:id", s.Delete)
	}
}

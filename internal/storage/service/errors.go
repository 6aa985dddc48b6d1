package service

import (
	"errors"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/skynotes-backend/internal/pkg/errors"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/response"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	"go.uber.org/zap"
)

// toAppError 将领域错误转换为业务错误码
func toAppError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, biz.ErrAccessDenied), errors.Is(err, biz.ErrFileNotFound), errors.Is(err, biz.ErrBlobNotFound):
		// 拒绝访问与文件不存在返回同一响应
		return apperrors.New(apperrors.ErrFileNotFound)
	case errors.Is(err, biz.ErrInvalidIdentifier):
		return apperrors.New(apperrors.ErrFileInvalidID)
	case errors.Is(err, biz.ErrQuotaExceeded):
		return apperrors.New(apperrors.ErrFileQuotaExceeded)
	case errors.Is(err, biz.ErrForbidden):
		return apperrors.New(apperrors.ErrFileForbidden)
	case errors.Is(err, biz.ErrFileTooLarge):
		return apperrors.New(apperrors.ErrFileTooLarge)
	case errors.Is(err, biz.ErrInvalidFile):
		return apperrors.New(apperrors.ErrFileInvalidInput, err.Error())
	case errors.Is(err, biz.ErrGroupNotFound):
		return apperrors.New(apperrors.ErrGroupNotFound)
	case errors.Is(err, biz.ErrInvalidGroup):
		return apperrors.New(apperrors.ErrGroupInvalidInput, err.Error())
	case errors.Is(err, biz.ErrShareNotFound):
		return apperrors.New(apperrors.ErrShareNotFound)
	case errors.Is(err, biz.ErrShareExpiryInPast):
		return apperrors.New(apperrors.ErrShareInvalidExpiry)
	case errors.Is(err, biz.ErrUpstreamUnavailable):
		return apperrors.New(apperrors.ErrThumbnailUnavail)
	default:
		return apperrors.Wrap(err, apperrors.ErrInternalServer)
	}
}

// handleError 统一错误处理，服务端错误记录日志
func handleError(c *gin.Context, log *logger.Logger, err error) {
	appErr := toAppError(err)
	if !apperrors.IsClientError(appErr.Code) {
		log.WithContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	response.HandleError(c, appErr)
}

// principal 从 JWT 中间件写入的上下文构造身份；未登录返回 nil
func principal(c *gin.Context) *biz.Principal {
	userID := c.GetString("user_id")
	if userID == "" {
		return nil
	}
	return &biz.Principal{UserID: userID, IsStaff: c.GetBool("is_staff")}
}

// requirePrincipal 要求已登录
func requirePrincipal(c *gin.Context) (*biz.Principal, bool) {
	p := principal(c)
	if p == nil {
		response.ErrorWithCode(c, apperrors.ErrUnauthorized)
		return nil, false
	}
	return p, true
}

func badRequest(c *gin.Context, err error) {
	response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
}

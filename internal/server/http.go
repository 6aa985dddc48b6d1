package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/skynotes-backend/internal/auth"
	"github.com/lk2023060901/skynotes-backend/internal/auth/middleware"
	"github.com/lk2023060901/skynotes-backend/internal/conf"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/metrics"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/redis"
	"github.com/lk2023060901/skynotes-backend/internal/storage/service"
	"go.uber.org/zap"
)

// Services HTTP 层依赖的业务服务
type Services struct {
	Files  *service.FileService
	Shares *service.ShareService
	Groups *service.GroupService
	Quota  *service.QuotaService
	Media  *service.MediaService
}

// HealthChecker 返回各依赖的健康状态
type HealthChecker func(ctx context.Context) map[string]error

type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	jwtManager *auth.JWTManager,
	redisClient *redis.Client,
	services *Services,
	health HealthChecker,
) *HTTPServer {
	if config.Server.Mode != "" {
		gin.SetMode(config.Server.Mode)
	}

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log, "/health", "/metrics"))
	router.Use(metrics.Middleware())
	router.Use(middleware.CORS())

	router.GET("/health", healthHandler(health))
	router.GET("/metrics", metrics.Handler())

	limit := config.RateLimit
	rateLimited := limit.MaxRequests > 0 && redisClient != nil
	rateCfg := middleware.RateLimiterConfig{
		MaxRequests:   limit.MaxRequests,
		WindowSeconds: limit.WindowSeconds,
		Strategy:      limit.Strategy,
	}

	// API routes
	api := router.Group("/api/v1", middleware.JWTAuth(jwtManager, log))
	if rateLimited {
		api.Use(middleware.APIRateLimiter(redisClient, rateCfg, log))
	}
	services.Files.RegisterRoutes(api)
	services.Shares.RegisterRoutes(api)
	services.Groups.RegisterRoutes(api)
	services.Quota.RegisterRoutes(api, middleware.RequireStaff())

	// 媒体访问：登录用户或分享令牌
	media := router.Group("", middleware.OptionalJWTAuth(jwtManager))
	if rateLimited {
		media.Use(middleware.MediaRateLimiter(redisClient, rateCfg, log))
	}
	services.Media.RegisterRoutes(media)

	return &HTTPServer{
		server: &http.Server{
			Addr:              config.Server.HTTPAddr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log,
	}
}

func healthHandler(health HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		deps := gin.H{}
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			for name, err := range health(ctx) {
				if err != nil {
					deps[name] = err.Error()
					status = http.StatusServiceUnavailable
					continue
				}
				deps[name] = "ok"
			}
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":       state,
			"time":         time.Now().Format(time.RFC3339),
			"dependencies": deps,
		})
	}
}

// Handler 返回路由，供测试使用
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

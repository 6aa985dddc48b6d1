package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/conf"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/database"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/minio"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/redis"
	storagedata "github.com/lk2023060901/skynotes-backend/internal/storage/data"
	"go.uber.org/zap"
)

// Data 聚合外部资源连接
type Data struct {
	DB          *database.DB
	RedisClient *redis.Client
	MinIOClient *minio.Client
	Logger      *logger.Logger
}

// NewData 初始化 PostgreSQL、Redis 和 MinIO，返回清理函数
func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := database.New(&config.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	// automigrate=false 时跳过
	if err := db.AutoMigrate(storagedata.Models()...); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	redisClient, err := redis.New(&config.Redis, log)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	minioClient, err := minio.NewClient(&config.MinIO, log)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, nil, fmt.Errorf("failed to init minio: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := minioClient.EnsureBucket(ctx); err != nil {
		db.Close()
		redisClient.Close()
		return nil, nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}

	d := &Data{
		DB:          db,
		RedisClient: redisClient,
		MinIOClient: minioClient,
		Logger:      log,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if err := redisClient.Close(); err != nil {
			log.Warn("failed to close redis", zap.Error(err))
		}
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}

	return d, cleanup, nil
}

// HealthCheck 检查各依赖是否可用
func (d *Data) HealthCheck(ctx context.Context) map[string]error {
	return map[string]error{
		"database": d.DB.HealthCheck(ctx),
		"redis":    d.RedisClient.Ping(ctx),
		"minio":    d.MinIOClient.Ping(ctx),
	}
}

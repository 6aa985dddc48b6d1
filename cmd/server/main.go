package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/auth"
	"github.com/lk2023060901/skynotes-backend/internal/conf"
	"github.com/lk2023060901/skynotes-backend/internal/data"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/eventbus"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/metrics"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/thumbnailer"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/workerpool"
	"github.com/lk2023060901/skynotes-backend/internal/server"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
	storagedata "github.com/lk2023060901/skynotes-backend/internal/storage/data"
	"github.com/lk2023060901/skynotes-backend/internal/storage/queue"
	"github.com/lk2023060901/skynotes-backend/internal/storage/service"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully")

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Initialize repositories
	fileRepo := storagedata.NewFileRepo(d.DB)
	groupRepo := storagedata.NewGroupRepo(d.DB)
	shareRepo := storagedata.NewShareRepo(d.DB)
	analyticsRepo := storagedata.NewAnalyticsRepo(d.DB)
	var quotaRepo biz.QuotaRepo = storagedata.NewQuotaRepo(d.DB)
	if config.Storage.QuotaCacheSize > 0 {
		quotaRepo = storagedata.NewCachedQuotaRepo(quotaRepo, config.Storage.QuotaCacheSize, config.Storage.QuotaCacheTTL)
	}
	blobStore := storagedata.NewMinIOBlobStorage(d.MinIOClient)

	var locker biz.Locker
	if config.Storage.Locker == "local" {
		locker = storagedata.NewLocalLocker()
	} else {
		locker = storagedata.NewRedisLocker(d.RedisClient, config.Storage.LockTTL, config.Storage.LockWait)
	}

	// Thumbnail service client
	thumbClient, err := thumbnailer.New(&config.Thumbnailer, log)
	if err != nil {
		log.Fatal("failed to create thumbnailer client", zap.Error(err))
	}
	defer thumbClient.Close()

	// Worker pool: analytics writes, and pipeline tasks when queue.driver=pool
	pool, err := workerpool.New(&config.WorkerPool, log)
	if err != nil {
		log.Fatal("failed to create worker pool", zap.Error(err))
	}
	defer pool.Shutdown()

	// Processing pipeline
	bus := eventbus.New[biz.FileEvent]()
	pipeline := biz.NewPipeline(fileRepo, blobStore, thumbClient, bus, log)

	var taskQueue queue.Queue
	switch config.Queue.Driver {
	case queue.DriverPool:
		taskQueue = queue.NewPoolQueue(pool, pipeline.Process, log)
	default:
		redisQueue := queue.NewRedisQueue(d.RedisClient, pipeline.Process, log, config.Queue.Workers, config.Queue.PollInterval)
		registerQueueGauges(redisQueue)
		taskQueue = redisQueue
	}
	metrics.RegisterGauge("skynotes_workerpool_running", "Busy worker pool goroutines", func() float64 {
		return float64(pool.Running())
	})
	pipeline.Subscribe(taskQueue)

	if err := taskQueue.Start(context.Background()); err != nil {
		log.Fatal("failed to start task queue", zap.Error(err))
	}
	defer taskQueue.Stop()

	// Initialize use cases
	quotaGuard := biz.NewQuotaGuard(fileRepo, quotaRepo, locker, storagedata.NewTransactor(d.DB), config.Storage.DefaultQuota, log)
	fileUseCase := biz.NewFileUseCase(fileRepo, groupRepo, blobStore, quotaGuard, bus, config.Storage.MaxUploadSize, time.Now, log)
	groupUseCase := biz.NewGroupUseCase(groupRepo, time.Now, log)
	shareUseCase := biz.NewShareUseCase(fileRepo, shareRepo, analyticsRepo, config.Share.PublicBaseURL, time.Now, log)
	recorder := biz.NewAnalyticsRecorder(analyticsRepo, pool, time.Now, log)
	mediaUseCase := biz.NewMediaUseCase(fileRepo, blobStore, shareUseCase, recorder, log)

	// Initialize services
	services := &server.Services{
		Files:  service.NewFileService(fileUseCase, config.Storage.MaxUploadSize, log),
		Shares: service.NewShareService(shareUseCase, log),
		Groups: service.NewGroupService(groupUseCase, log),
		Quota:  service.NewQuotaService(quotaGuard, log),
		Media:  service.NewMediaService(mediaUseCase, log),
	}

	jwtManager := auth.NewJWTManager(config.Auth.JWTSecret, config.Auth.JWTIssuer)
	httpServer := server.NewHTTPServer(config, log, jwtManager, d.RedisClient, services, d.HealthCheck)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func registerQueueGauges(q *queue.RedisQueue) {
	read := func(fn func(context.Context) (int64, error)) func() float64 {
		return func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			n, err := fn(ctx)
			if err != nil {
				return -1
			}
			return float64(n)
		}
	}
	metrics.RegisterGauge("skynotes_queue_pending", "File tasks waiting in the Redis queue", read(q.QueueSize))
	metrics.RegisterGauge("skynotes_queue_processing", "Files currently being processed", read(q.ProcessingCount))
}

package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/lk2023060901/skynotes-backend/internal/conf"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/server"
	"github.com/lk2023060901/skynotes-backend/internal/thumbnail"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "", "config file path (optional)")
)

func main() {
	flag.Parse()

	config, err := conf.Load(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	config.Log.Service = "skynotes-thumbnailer"
	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	renderer := thumbnail.NewRenderer(config.Thumbnail.MaxWidth, config.Thumbnail.MaxHeight, config.Thumbnail.MaxPixels, log)
	grpcServer := server.NewGRPCServer(config.Server.GRPCAddr(), config.Thumbnailer.MaxMessageSize, log, renderer)

	go func() {
		if err := grpcServer.Start(); err != nil {
			log.Fatal("failed to start gRPC server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	grpcServer.Stop()
	log.Info("thumbnailer exited")
}

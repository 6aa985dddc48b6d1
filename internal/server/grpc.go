package server

import (
	"fmt"
	"net"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/thumbnailer"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// GRPCServer 缩略图 gRPC 服务器
type GRPCServer struct {
	addr       string
	logger     *logger.Logger
	grpcServer *grpc.Server
}

// NewGRPCServer 创建 gRPC 服务器；maxMessageSize 为 0 时使用 gRPC 默认上限
func NewGRPCServer(addr string, maxMessageSize int, log *logger.Logger, renderer thumbnailer.Server) *GRPCServer {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			logger.RecoveryInterceptor(log),
			logger.UnaryServerInterceptor(log),
		),
	}
	limits := thumbnailer.Config{MaxMessageSize: maxMessageSize}
	opts = append(opts, limits.ServerOptions()...)
	grpcServer := grpc.NewServer(opts...)

	thumbnailer.RegisterServer(grpcServer, renderer)

	// 启用反射（用于 grpcurl 等工具）
	reflection.Register(grpcServer)

	return &GRPCServer{
		addr:       addr,
		logger:     log,
		grpcServer: grpcServer,
	}
}

// Start 启动 gRPC 服务器
func (s *GRPCServer) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve 在给定 listener 上提供服务
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.logger.Info("starting gRPC server", zap.String("addr", lis.Addr().String()))

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

// Stop 停止 gRPC 服务器
func (s *GRPCServer) Stop() {
	s.logger.Info("stopping gRPC server")
	s.grpcServer.GracefulStop()
}

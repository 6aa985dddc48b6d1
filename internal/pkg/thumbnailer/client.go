package thumbnailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ErrUnavailable wraps every failure of a GenerateThumbnail call.
var ErrUnavailable = errors.New("thumbnailer: service unavailable")

// Client calls the remote thumbnail service over one long-lived connection.
// It performs no retries; a failed call is final for that attempt.
type Client struct {
	conn   *grpc.ClientConn
	config *Config
	logger *logger.Logger
}

// New dials the thumbnail service. The connection is established lazily and
// reused by every call.
func New(cfg *Config, log *logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		var err error
		if cfg.CAFile != "" {
			creds, err = credentials.NewClientTLSFromFile(cfg.CAFile, "")
			if err != nil {
				return nil, fmt.Errorf("thumbnailer: load CA file: %w", err)
			}
		} else {
			creds = credentials.NewClientTLSFromCert(nil, "")
		}
	}

	conn, err := grpc.NewClient(cfg.Addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithUnaryInterceptor(logger.UnaryClientInterceptor(log.Named("thumbnailer"))),
		grpc.WithDefaultCallOptions(cfg.CallOptions()...),
	)
	if err != nil {
		return nil, fmt.Errorf("thumbnailer: create client: %w", err)
	}

	log.Info("thumbnail client created",
		zap.String("addr", cfg.Addr),
		zap.Bool("tls", cfg.UseTLS),
		zap.Int("max_message_size", cfg.MaxMessageSize),
	)

	return NewWithConn(conn, cfg, log), nil
}

// NewWithConn builds a client on an existing connection.
func NewWithConn(conn *grpc.ClientConn, cfg *Config, log *logger.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Client{conn: conn, config: cfg, logger: log.Named("thumbnailer")}
}

// GenerateThumbnail sends content to the service and returns the thumbnail bytes.
func (c *Client) GenerateThumbnail(ctx context.Context, content []byte) ([]byte, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, GenerateThumbnailPath, wrapperspb.Bytes(content), out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(out.GetValue()) == 0 {
		return nil, fmt.Errorf("%w: empty thumbnail", ErrUnavailable)
	}
	return out.GetValue(), nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

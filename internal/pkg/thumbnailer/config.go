package thumbnailer

import (
	"errors"
	"time"

	"google.golang.org/grpc"
)

// Config 缩略图服务客户端配置
type Config struct {
	Addr    string        `mapstructure:"addr"`    // host:port
	Timeout time.Duration `mapstructure:"timeout"` // 单次调用超时，0 表示不限制
	UseTLS  bool          `mapstructure:"use_tls"`
	CAFile  string        `mapstructure:"ca_file"` // 为空时使用系统根证书
	// MaxMessageSize 单条消息的收发上限（字节），0 使用 gRPC 默认值 4 MiB
	MaxMessageSize int `mapstructure:"max_message_size"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Addr:    "localhost:50051",
		Timeout: 30 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("thumbnailer: addr is required")
	}
	if c.Timeout < 0 {
		return errors.New("thumbnailer: timeout must be >= 0")
	}
	if c.MaxMessageSize < 0 {
		return errors.New("thumbnailer: max_message_size must be >= 0")
	}
	if c.CAFile != "" && !c.UseTLS {
		return errors.New("thumbnailer: ca_file requires use_tls")
	}
	return nil
}

// CallOptions 返回客户端默认调用选项
func (c *Config) CallOptions() []grpc.CallOption {
	if c.MaxMessageSize <= 0 {
		return nil
	}
	return []grpc.CallOption{
		grpc.MaxCallSendMsgSize(c.MaxMessageSize),
		grpc.MaxCallRecvMsgSize(c.MaxMessageSize),
	}
}

// ServerOptions 返回与客户端一致的服务端消息上限
func (c *Config) ServerOptions() []grpc.ServerOption {
	if c.MaxMessageSize <= 0 {
		return nil
	}
	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(c.MaxMessageSize),
		grpc.MaxSendMsgSize(c.MaxMessageSize),
	}
}

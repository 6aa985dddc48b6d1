package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/database"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/logger"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/minio"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/redis"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/thumbnailer"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/workerpool"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 SKYNOTES_DATABASE_HOST
const EnvPrefix = "SKYNOTES"

type Config struct {
	Server      ServerConfig       `mapstructure:"server"`
	Database    database.Config    `mapstructure:"database"`
	Redis       redis.Config       `mapstructure:"redis"`
	MinIO       minio.Config       `mapstructure:"minio"`
	Log         logger.Config      `mapstructure:"log"`
	Auth        AuthConfig         `mapstructure:"auth"`
	Thumbnailer thumbnailer.Config `mapstructure:"thumbnailer"`
	Thumbnail   ThumbnailConfig    `mapstructure:"thumbnail"`
	Storage     StorageConfig      `mapstructure:"storage"`
	Queue       QueueConfig        `mapstructure:"queue"`
	WorkerPool  workerpool.Config  `mapstructure:"workerpool"`
	Share       ShareConfig        `mapstructure:"share"`
	RateLimit   RateLimitConfig    `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	GRPCPort int    `mapstructure:"grpc_port"` // thumbnailer 服务监听端口
	Mode     string `mapstructure:"mode"`      // gin 模式：debug, release, test
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// ThumbnailConfig 缩略图渲染尺寸
type ThumbnailConfig struct {
	MaxWidth  int   `mapstructure:"max_width"`
	MaxHeight int   `mapstructure:"max_height"`
	MaxPixels int64 `mapstructure:"max_pixels"` // 源图像素上限
}

type StorageConfig struct {
	DefaultQuota  int64         `mapstructure:"default_quota"`   // 字节
	MaxUploadSize int64         `mapstructure:"max_upload_size"` // 字节
	Locker        string        `mapstructure:"locker"`          // redis, local
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
	LockWait      time.Duration `mapstructure:"lock_wait"`
	// 配额缓存，QuotaCacheSize 为 0 时关闭
	QuotaCacheSize int           `mapstructure:"quota_cache_size"`
	QuotaCacheTTL  time.Duration `mapstructure:"quota_cache_ttl"`
}

type QueueConfig struct {
	Driver       string        `mapstructure:"driver"` // redis, pool
	Workers      int           `mapstructure:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type ShareConfig struct {
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// RateLimitConfig 限流配置；MaxRequests 为 0 时关闭
type RateLimitConfig struct {
	MaxRequests   int    `mapstructure:"max_requests"`
	WindowSeconds int    `mapstructure:"window_seconds"`
	Strategy      string `mapstructure:"strategy"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "skynotes")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxidleconns", 10)
	v.SetDefault("database.maxopenconns", 100)
	v.SetDefault("database.connmaxlifetime", time.Hour)
	v.SetDefault("database.loglevel", "warn")
	v.SetDefault("database.slowthreshold", 200*time.Millisecond)
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.automigrate", true)

	v.SetDefault("redis.mode", "single")
	v.SetDefault("redis.addrs", []string{"localhost:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "skynotes")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("minio.request_timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.service", "skynotes")
	v.SetDefault("log.enablecaller", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "skynotes")

	v.SetDefault("thumbnailer.addr", "localhost:50051")
	v.SetDefault("thumbnailer.timeout", 30*time.Second)
	v.SetDefault("thumbnailer.use_tls", false)
	v.SetDefault("thumbnailer.ca_file", "")
	v.SetDefault("thumbnailer.max_message_size", 0)

	v.SetDefault("thumbnail.max_width", 200)
	v.SetDefault("thumbnail.max_height", 400)
	v.SetDefault("thumbnail.max_pixels", int64(50_000_000))

	v.SetDefault("storage.default_quota", int64(1<<30))
	v.SetDefault("storage.max_upload_size", int64(100<<20))
	v.SetDefault("storage.locker", "redis")
	v.SetDefault("storage.lock_ttl", 30*time.Second)
	v.SetDefault("storage.lock_wait", 10*time.Second)
	v.SetDefault("storage.quota_cache_size", 10000)
	v.SetDefault("storage.quota_cache_ttl", time.Minute)

	v.SetDefault("queue.driver", "redis")
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.poll_interval", time.Second)

	v.SetDefault("workerpool.workers", 16)
	v.SetDefault("workerpool.max_blocking_tasks", 1000)
	v.SetDefault("workerpool.nonblocking", false)
	v.SetDefault("workerpool.shutdown_timeout", 10*time.Second)

	v.SetDefault("share.public_base_url", "http://localhost:8080")

	v.SetDefault("ratelimit.max_requests", 120)
	v.SetDefault("ratelimit.window_seconds", 60)
	v.SetDefault("ratelimit.strategy", "ip")
}

// grpcMessageOverhead 消息封装的额外字节
const grpcMessageOverhead = 64 << 10

// LoadConfig 读取并校验 API 服务配置
func LoadConfig(path string) (*Config, error) {
	config, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Load 读取配置文件并应用环境变量覆盖，不做校验。
// path 为空时只使用默认值和环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容旧部署的 GRPC_ADDR
	if err := v.BindEnv("thumbnailer.addr", EnvPrefix+"_THUMBNAILER_ADDR", "GRPC_ADDR"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// 未显式配置时，gRPC 消息上限按最大上传大小放宽
	if config.Thumbnailer.MaxMessageSize == 0 && config.Storage.MaxUploadSize > 0 {
		config.Thumbnailer.MaxMessageSize = int(config.Storage.MaxUploadSize) + grpcMessageOverhead
	}
	return &config, nil
}

// Validate 检查配置
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Storage.DefaultQuota <= 0 {
		return fmt.Errorf("storage.default_quota must be positive")
	}
	switch c.Storage.Locker {
	case "redis", "local":
	default:
		return fmt.Errorf("storage.locker must be redis or local, got %q", c.Storage.Locker)
	}
	switch c.Queue.Driver {
	case "redis", "pool":
	default:
		return fmt.Errorf("queue.driver must be redis or pool, got %q", c.Queue.Driver)
	}
	if c.Share.PublicBaseURL == "" {
		return fmt.Errorf("share.public_base_url is required")
	}
	return nil
}

// HTTPAddr HTTP 监听地址
func (c *ServerConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCAddr gRPC 监听地址
func (c *ServerConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 只有当锁的值等于 token 时才删除
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Lock 获取分布式锁，返回释放时需要的 token
func (c *Client) Lock(ctx context.Context, key string, expiration time.Duration) (string, error) {
	token := uuid.New().String()

	ok, err := c.rdb.SetNX(ctx, key, token, expiration).Result()
	if err != nil {
		c.logger.Error("redis lock failed", zap.String("key", key), zap.Error(err))
		return "", err
	}
	if !ok {
		return "", ErrLockNotHeld
	}

	return token, nil
}

// Unlock 释放分布式锁
func (c *Client) Unlock(ctx context.Context, key, token string) error {
	n, err := unlockScript.Run(ctx, c.rdb, []string{key}, token).Int64()
	if err != nil {
		c.logger.Error("redis unlock failed", zap.String("key", key), zap.Error(err))
		return err
	}
	if n == 0 {
		return ErrLockNotRelease
	}
	return nil
}

// TryLock 在 ctx 结束前按 retryDelay 间隔重试获取锁
func (c *Client) TryLock(ctx context.Context, key string, expiration, retryDelay time.Duration) (string, error) {
	ticker := time.NewTicker(retryDelay)
	defer ticker.Stop()

	for {
		token, err := c.Lock(ctx, key, expiration)
		if err == nil {
			return token, nil
		}
		if err != ErrLockNotHeld {
			return "", err
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}

// WithLock 在锁保护下执行函数，锁被占用时等待
func (c *Client) WithLock(ctx context.Context, key string, expiration time.Duration, fn func() error) error {
	token, err := c.TryLock(ctx, key, expiration, 20*time.Millisecond)
	if err != nil {
		return err
	}

	defer func() {
		// 使用独立 context，避免请求取消导致锁无法释放
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := c.Unlock(unlockCtx, key, token); err != nil {
			c.logger.Warn("failed to unlock", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn()
}

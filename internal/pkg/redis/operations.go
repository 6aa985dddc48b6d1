package redis

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ==================== List Operations ====================

// LPush 从列表左侧推入
func (c *Client) LPush(ctx context.Context, key string, values ...interface{}) (int64, error) {
	n, err := c.rdb.LPush(ctx, key, values...).Result()
	if err != nil {
		c.logger.Error("redis lpush failed", zap.String("key", key), zap.Error(err))
	}
	return n, err
}

// BRPop 阻塞地从列表右侧弹出，超时返回 ErrNil
func (c *Client) BRPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	res, err := c.rdb.BRPop(ctx, timeout, key).Result()
	if err != nil {
		if !IsNil(err) && ctx.Err() == nil {
			c.logger.Error("redis brpop failed", zap.String("key", key), zap.Error(err))
		}
		return "", err
	}
	// res[0] 为 key，res[1] 为值
	return res[1], nil
}

// LLen 获取列表长度
func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.LLen(ctx, key).Result()
	if err != nil {
		c.logger.Error("redis llen failed", zap.String("key", key), zap.Error(err))
	}
	return n, err
}

// ==================== Set Operations ====================

// SAdd 添加集合成员
func (c *Client) SAdd(ctx context.Context, key string, members ...interface{}) (int64, error) {
	n, err := c.rdb.SAdd(ctx, key, members...).Result()
	if err != nil {
		c.logger.Error("redis sadd failed", zap.String("key", key), zap.Error(err))
	}
	return n, err
}

// SRem 删除集合成员
func (c *Client) SRem(ctx context.Context, key string, members ...interface{}) (int64, error) {
	n, err := c.rdb.SRem(ctx, key, members...).Result()
	if err != nil {
		c.logger.Error("redis srem failed", zap.String("key", key), zap.Error(err))
	}
	return n, err
}

// SCard 获取集合成员数
func (c *Client) SCard(ctx context.Context, key string) (int64, error) {
	return c.rdb.SCard(ctx, key).Result()
}

// ==================== Lua Script Operations ====================

// Eval 执行 Lua 脚本
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	result, err := c.rdb.Eval(ctx, script, keys, args...).Result()
	if err != nil {
		c.logger.Error("redis eval failed", zap.Strings("keys", keys), zap.Error(err))
	}
	return result, err
}

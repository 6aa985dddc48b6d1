package data

import (
	"context"
	"sync"
	"time"

	pkgredis "github.com/lk2023060901/skynotes-backend/internal/pkg/redis"
)

const lockKeyPrefix = "lock:"

// RedisLocker 基于 Redis 的分布式锁，多实例部署时使用
type RedisLocker struct {
	redis *pkgredis.Client
	ttl   time.Duration
	wait  time.Duration
}

// NewRedisLocker 创建 Redis 锁；ttl 为锁过期时间，wait 为最长等待时间
func NewRedisLocker(client *pkgredis.Client, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return &RedisLocker{redis: client, ttl: ttl, wait: wait}
}

// WithLock 持有锁时执行 fn
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	return l.redis.WithLock(ctx, lockKeyPrefix+key, l.ttl, fn)
}

// LocalLocker 进程内按 key 加锁，单实例部署或测试时使用
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker 创建进程内锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

// WithLock 持有锁时执行 fn，ctx 结束时放弃等待
func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	defer l.release(key, lk)

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-lk.ch }()

	return fn()
}

func (l *LocalLocker) release(key string, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}

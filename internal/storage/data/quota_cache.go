package data

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lk2023060901/skynotes-backend/internal/pkg/metrics"
	"github.com/lk2023060901/skynotes-backend/internal/storage/biz"
)

type cachedLimit struct {
	limit int64
	ok    bool
}

// CachedQuotaRepo 为配额查询加一层进程内 LRU 缓存（带 TTL）。
// 多实例部署时其他实例的修改最多延迟一个 TTL 生效。
type CachedQuotaRepo struct {
	next  biz.QuotaRepo
	cache *expirable.LRU[string, cachedLimit]
}

// NewCachedQuotaRepo 包装 next；size 为最大条目数
func NewCachedQuotaRepo(next biz.QuotaRepo, size int, ttl time.Duration) *CachedQuotaRepo {
	return &CachedQuotaRepo{
		next:  next,
		cache: expirable.NewLRU[string, cachedLimit](size, nil, ttl),
	}
}

// GetLimit 先查缓存，未命中时回源。未设置配额的结果同样缓存。
func (r *CachedQuotaRepo) GetLimit(ctx context.Context, ownerID string) (int64, bool, error) {
	if v, ok := r.cache.Get(ownerID); ok {
		metrics.QuotaCacheLookups.WithLabelValues("hit").Inc()
		return v.limit, v.ok, nil
	}
	metrics.QuotaCacheLookups.WithLabelValues("miss").Inc()

	limit, ok, err := r.next.GetLimit(ctx, ownerID)
	if err != nil {
		return 0, false, err
	}
	r.cache.Add(ownerID, cachedLimit{limit: limit, ok: ok})
	return limit, ok, nil
}

// SetLimit 写入后使本实例缓存失效
func (r *CachedQuotaRepo) SetLimit(ctx context.Context, ownerID string, limit int64) error {
	defer r.cache.Remove(ownerID)
	return r.next.SetLimit(ctx, ownerID, limit)
}

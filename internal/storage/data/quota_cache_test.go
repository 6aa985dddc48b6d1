package data

import (
	"context"
	"testing"
	"time"

	"github.com/lk2023060901/skynotes-backend/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingQuotaRepo struct {
	*storagetest.QuotaRepo
	gets int
}

func (r *countingQuotaRepo) GetLimit(ctx context.Context, ownerID string) (int64, bool, error) {
	r.gets++
	return r.QuotaRepo.GetLimit(ctx, ownerID)
}

func TestCachedQuotaRepo(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New()
	store.SetQuota("alice", 100)
	next := &countingQuotaRepo{QuotaRepo: store.Quotas()}
	repo := NewCachedQuotaRepo(next, 16, time.Minute)

	for i := 0; i < 3; i++ {
		limit, ok, err := repo.GetLimit(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(100), limit)
	}
	assert.Equal(t, 1, next.gets)

	// missing rows are cached too
	_, ok, err := repo.GetLimit(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
	_, _, _ = repo.GetLimit(ctx, "bob")
	assert.Equal(t, 2, next.gets)

	require.NoError(t, repo.SetLimit(ctx, "bob", 42))
	limit, ok, err := repo.GetLimit(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), limit)
	assert.Equal(t, 3, next.gets)
}

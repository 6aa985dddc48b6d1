package data

import (
	"context"

	"github.com/lk2023060901/skynotes-backend/internal/pkg/database"
	"gorm.io/gorm"
)

// Transactor 基于 gorm 事务实现 biz.Transactor，仓储通过 ctx 取到同一事务
type Transactor struct {
	db *database.DB
}

// NewTransactor 创建事务执行器
func NewTransactor(db *database.DB) *Transactor {
	return &Transactor{db: db}
}

// InTx 在事务内执行 fn
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.Transaction(ctx, func(ctx context.Context, _ *gorm.DB) error {
		return fn(ctx)
	})
}

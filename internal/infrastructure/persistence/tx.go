package persistence

import (
	"context"

	"github.com/academy/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// txKey is the context key carrying an ambient transaction handle.
type txKey struct{}

// txFromContext returns the transaction bound to the context, or nil.
func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// dbFromContext returns the transaction bound to the context when one is
// present, falling back to the repository's own handle. Repositories resolve
// their handle through this so that reconciliation steps running inside a
// TransactionManager.Do block all share one transaction.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}

// GormTransactionManager implements shared.TransactionManager on top of GORM
// transactions. The transaction handle travels in the context, so the code
// inside fn keeps calling plain repository methods.
type GormTransactionManager struct {
	db *gorm.DB
}

// NewGormTransactionManager creates a new GormTransactionManager
func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// Do runs fn inside a database transaction. A nested call joins the ambient
// transaction instead of opening a second one.
func (m *GormTransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Ensure GormTransactionManager implements TransactionManager
var _ shared.TransactionManager = (*GormTransactionManager)(nil)

package dbctx

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the transaction when present, otherwise fallback.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	tx := c.Tx
	if tx == nil {
		tx = fallback
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return tx.WithContext(ctx)
}

// ForUpdate adds a row lock on dialects that support SELECT ... FOR UPDATE.
// SQLite serializes writers on its own and rejects the clause.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

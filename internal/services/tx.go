package services

import (
	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
)

// inTx joins dbc.Tx when the caller already holds one.
func inTx(db *gorm.DB, dbc dbctx.Context, fn func(inner dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}

package ops

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type CallbackReceiptRepo interface {
	Get(dbc dbctx.Context, scope string, entityID uuid.UUID, requestKey string) (*types.CallbackReceipt, error)
	// Create fails with a unique violation when the key was already recorded.
	Create(dbc dbctx.Context, receipt *types.CallbackReceipt) error
}

type callbackReceiptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCallbackReceiptRepo(db *gorm.DB, baseLog *logger.Logger) CallbackReceiptRepo {
	return &callbackReceiptRepo{db: db, log: baseLog.With("repo", "CallbackReceiptRepo")}
}

func (r *callbackReceiptRepo) Get(dbc dbctx.Context, scope string, entityID uuid.UUID, requestKey string) (*types.CallbackReceipt, error) {
	var out types.CallbackReceipt
	err := dbc.DB(r.db).
		Where("scope = ? AND entity_id = ? AND request_key = ?", scope, entityID, requestKey).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *callbackReceiptRepo) Create(dbc dbctx.Context, receipt *types.CallbackReceipt) error {
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(receipt).Error
}

package production

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	prod "github.com/yungbote/eduvideo-backend/internal/domain/production"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type SourceSetDocumentRepo interface {
	// AddMissing inserts one PENDING row per document id not yet in the set.
	AddMissing(dbc dbctx.Context, sourceSetID uuid.UUID, documentIDs []uuid.UUID) (int64, error)
	ListBySourceSet(dbc dbctx.Context, sourceSetID uuid.UUID) ([]*types.SourceSetDocument, error)
	Remove(dbc dbctx.Context, sourceSetID uuid.UUID, documentIDs []uuid.UUID) error
	RemoveAll(dbc dbctx.Context, sourceSetID uuid.UUID) error
	ApplyResult(dbc dbctx.Context, sourceSetID, documentID uuid.UUID, status types.DocumentStatus, failReason string, at time.Time) (bool, error)
}

type sourceSetDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceSetDocumentRepo(db *gorm.DB, baseLog *logger.Logger) SourceSetDocumentRepo {
	return &sourceSetDocumentRepo{db: db, log: baseLog.With("repo", "SourceSetDocumentRepo")}
}

func (r *sourceSetDocumentRepo) AddMissing(dbc dbctx.Context, sourceSetID uuid.UUID, documentIDs []uuid.UUID) (int64, error) {
	if len(documentIDs) == 0 {
		return 0, nil
	}
	seen := map[uuid.UUID]bool{}
	rows := make([]*types.SourceSetDocument, 0, len(documentIDs))
	for _, id := range documentIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, &types.SourceSetDocument{
			ID:          uuid.New(),
			SourceSetID: sourceSetID,
			DocumentID:  id,
			Status:      prod.DocumentPending,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_set_id"}, {Name: "document_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

func (r *sourceSetDocumentRepo) ListBySourceSet(dbc dbctx.Context, sourceSetID uuid.UUID) ([]*types.SourceSetDocument, error) {
	var out []*types.SourceSetDocument
	err := dbc.DB(r.db).
		Where("source_set_id = ?", sourceSetID).
		Order("created_at ASC, document_id ASC").
		Find(&out).Error
	return out, err
}

func (r *sourceSetDocumentRepo) Remove(dbc dbctx.Context, sourceSetID uuid.UUID, documentIDs []uuid.UUID) error {
	if len(documentIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("source_set_id = ? AND document_id IN ?", sourceSetID, documentIDs).
		Delete(&types.SourceSetDocument{}).Error
}

func (r *sourceSetDocumentRepo) RemoveAll(dbc dbctx.Context, sourceSetID uuid.UUID) error {
	return dbc.DB(r.db).
		Where("source_set_id = ?", sourceSetID).
		Delete(&types.SourceSetDocument{}).Error
}

func (r *sourceSetDocumentRepo) ApplyResult(dbc dbctx.Context, sourceSetID, documentID uuid.UUID, status types.DocumentStatus, failReason string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":      status,
		"fail_reason": failReason,
	}
	if status == prod.DocumentCompleted {
		updates["completed_at"] = at
	}
	res := dbc.DB(r.db).
		Model(&types.SourceSetDocument{}).
		Where("source_set_id = ? AND document_id = ?", sourceSetID, documentID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

package production

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

// ScriptContentRepo owns the chapter and scene rows of a script.
type ScriptContentRepo interface {
	CreateChapter(dbc dbctx.Context, chapter *types.ScriptChapter) error
	GetChapter(dbc dbctx.Context, scriptID uuid.UUID, chapterIndex int) (*types.ScriptChapter, error)
	UpdateChapter(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ListChapters(dbc dbctx.Context, scriptID uuid.UUID) ([]*types.ScriptChapter, error)

	CreateScenes(dbc dbctx.Context, scenes []*types.ScriptScene) error
	GetScene(dbc dbctx.Context, chapterID uuid.UUID, sceneIndex int) (*types.ScriptScene, error)
	UpdateScene(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// ListScenes returns live scenes of the script ordered by chapter then scene index.
	ListScenes(dbc dbctx.Context, scriptID uuid.UUID) ([]*types.ScriptScene, error)

	// Purge hard-deletes every chapter and scene of the script, soft-deleted scenes included.
	Purge(dbc dbctx.Context, scriptID uuid.UUID) error
}

type scriptContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScriptContentRepo(db *gorm.DB, baseLog *logger.Logger) ScriptContentRepo {
	return &scriptContentRepo{db: db, log: baseLog.With("repo", "ScriptContentRepo")}
}

func (r *scriptContentRepo) CreateChapter(dbc dbctx.Context, chapter *types.ScriptChapter) error {
	if chapter.ID == uuid.Nil {
		chapter.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(chapter).Error
}

func (r *scriptContentRepo) GetChapter(dbc dbctx.Context, scriptID uuid.UUID, chapterIndex int) (*types.ScriptChapter, error) {
	return firstOrNil[types.ScriptChapter](dbc.DB(r.db).
		Where("script_id = ? AND chapter_index = ?", scriptID, chapterIndex))
}

func (r *scriptContentRepo) UpdateChapter(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return dbc.DB(r.db).Model(&types.ScriptChapter{}).Where("id = ?", id).Updates(updates).Error
}

func (r *scriptContentRepo) ListChapters(dbc dbctx.Context, scriptID uuid.UUID) ([]*types.ScriptChapter, error) {
	var out []*types.ScriptChapter
	err := dbc.DB(r.db).
		Where("script_id = ?", scriptID).
		Order("chapter_index ASC").
		Find(&out).Error
	return out, err
}

func (r *scriptContentRepo) CreateScenes(dbc dbctx.Context, scenes []*types.ScriptScene) error {
	if len(scenes) == 0 {
		return nil
	}
	for _, s := range scenes {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
	}
	return dbc.DB(r.db).Create(&scenes).Error
}

// GetScene also returns soft-deleted rows so an upsert can revive them.
func (r *scriptContentRepo) GetScene(dbc dbctx.Context, chapterID uuid.UUID, sceneIndex int) (*types.ScriptScene, error) {
	return firstOrNil[types.ScriptScene](dbc.DB(r.db).Unscoped().
		Where("chapter_id = ? AND scene_index = ?", chapterID, sceneIndex))
}

func (r *scriptContentRepo) UpdateScene(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return dbc.DB(r.db).Unscoped().Model(&types.ScriptScene{}).Where("id = ?", id).Updates(updates).Error
}

func (r *scriptContentRepo) ListScenes(dbc dbctx.Context, scriptID uuid.UUID) ([]*types.ScriptScene, error) {
	var out []*types.ScriptScene
	err := dbc.DB(r.db).
		Table("script_scene AS s").
		Select("s.*").
		Joins("JOIN script_chapter c ON c.id = s.chapter_id").
		Where("s.script_id = ? AND s.deleted_at IS NULL", scriptID).
		Order("c.chapter_index ASC, s.scene_index ASC").
		Find(&out).Error
	return out, err
}

func (r *scriptContentRepo) Purge(dbc dbctx.Context, scriptID uuid.UUID) error {
	tx := dbc.DB(r.db)
	if err := tx.Unscoped().Where("script_id = ?", scriptID).Delete(&types.ScriptScene{}).Error; err != nil {
		return err
	}
	return tx.Where("script_id = ?", scriptID).Delete(&types.ScriptChapter{}).Error
}

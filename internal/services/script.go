package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/data/repos"
	types "github.com/yungbote/eduvideo-backend/internal/domain"
	prod "github.com/yungbote/eduvideo-backend/internal/domain/production"
	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
	"github.com/yungbote/eduvideo-backend/internal/platform/dbctx"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type SceneDTO struct {
	SceneIndex         int     `json:"sceneIndex" validate:"gte=0"`
	Purpose            string  `json:"purpose"`
	Narration          string  `json:"narration"`
	Caption            string  `json:"caption"`
	Visual             string  `json:"visual"`
	DurationSec        int     `json:"durationSec" validate:"gte=0"`
	ConfidenceScore    float64 `json:"confidenceScore" validate:"gte=0,lte=1"`
	SourceChunkIndexes []int   `json:"sourceChunkIndexes" validate:"omitempty,dive,gte=0"`
}

func (d *SceneDTO) blank() bool {
	return prod.FirstNonBlank(d.Narration, d.Caption, d.Visual) == ""
}

type ChapterDTO struct {
	ChapterIndex int        `json:"chapterIndex" validate:"gte=0"`
	Title        string     `json:"title"`
	DurationSec  int        `json:"durationSec" validate:"gte=0"`
	Scenes       []SceneDTO `json:"scenes" validate:"unique=SceneIndex,dive"`
}

type ScriptDTO struct {
	Title            string       `json:"title"`
	TotalDurationSec int          `json:"totalDurationSec" validate:"gte=0"`
	LLMModel         string       `json:"llmModel"`
	Chapters         []ChapterDTO `json:"chapters" validate:"required,min=1,unique=ChapterIndex,dive"`
}

type ScenePatchDTO struct {
	ScriptID     *uuid.UUID `json:"scriptId,omitempty"`
	ChapterIndex int        `json:"chapterIndex" validate:"gte=0"`
	ChapterTitle string     `json:"chapterTitle"`
	SceneIndex   int        `json:"sceneIndex" validate:"gte=0"`
	Scene        SceneDTO   `json:"scene"`
}

type RenderScene struct {
	SceneID            uuid.UUID `json:"sceneId"`
	SceneIndex         int       `json:"sceneIndex"`
	Purpose            string    `json:"purpose,omitempty"`
	Narration          string    `json:"narration"`
	Caption            string    `json:"caption"`
	Visual             string    `json:"visual"`
	DurationSec        int       `json:"durationSec"`
	ConfidenceScore    float64   `json:"confidenceScore"`
	SourceChunkIndexes []int     `json:"sourceChunkIndexes"`
}

type RenderChapter struct {
	ChapterIndex int           `json:"chapterIndex"`
	Title        string        `json:"title"`
	DurationSec  int           `json:"durationSec"`
	Scenes       []RenderScene `json:"scenes"`
}

type RenderSpec struct {
	ScriptID         uuid.UUID       `json:"scriptId"`
	Version          int             `json:"version"`
	Title            string          `json:"title"`
	TotalDurationSec int             `json:"totalDurationSec"`
	Chapters         []RenderChapter `json:"chapters"`
}

type ScriptDetail struct {
	Script   *types.Script   `json:"script"`
	Chapters []RenderChapter `json:"chapters"`
}

type ScriptService interface {
	IngestFullScript(dbc dbctx.Context, sourceSetID uuid.UUID, dto *ScriptDTO) (*types.Script, error)
	// IngestScenePatch upserts one scene. saved is false when the patch was ignored.
	IngestScenePatch(dbc dbctx.Context, sourceSetID uuid.UUID, patch *ScenePatchDTO) (script *types.Script, saved bool, err error)
	GetRenderSpec(dbc dbctx.Context, scriptID uuid.UUID) (*RenderSpec, error)
	GetScript(dbc dbctx.Context, scriptID uuid.UUID) (*ScriptDetail, error)
	ListScriptVersions(dbc dbctx.Context, sourceSetID uuid.UUID) ([]*types.Script, error)
	SetStatus(dbc dbctx.Context, scriptID uuid.UUID, status types.ScriptStatus) error
	// LatestApprovedScenes returns the live scenes of the education's newest approved script.
	LatestApprovedScenes(dbc dbctx.Context, educationID uuid.UUID) (*types.Script, []*types.ScriptScene, error)
}

type scriptService struct {
	db         *gorm.DB
	log        *logger.Logger
	validate   *validator.Validate
	sourceSets repos.SourceSetRepo
	scripts    repos.ScriptRepo
	content    repos.ScriptContentRepo
}

func NewScriptService(
	db *gorm.DB,
	baseLog *logger.Logger,
	validate *validator.Validate,
	sourceSets repos.SourceSetRepo,
	scripts repos.ScriptRepo,
	content repos.ScriptContentRepo,
) ScriptService {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &scriptService{
		db:         db,
		log:        baseLog.With("service", "ScriptService"),
		validate:   validate,
		sourceSets: sourceSets,
		scripts:    scripts,
		content:    content,
	}
}

func (s *scriptService) IngestFullScript(dbc dbctx.Context, sourceSetID uuid.UUID, dto *ScriptDTO) (*types.Script, error) {
	if dto == nil {
		return nil, apierr.BadRequest("script_missing", "script payload is required")
	}
	if err := s.validate.Struct(dto); err != nil {
		return nil, apierr.BadRequest("script_invalid", "invalid script: %v", err)
	}
	raw, err := json.Marshal(dto)
	if err != nil {
		return nil, err
	}

	var script *types.Script
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		set, err := s.sourceSets.GetByID(inner, sourceSetID)
		if err != nil {
			return err
		}
		if set == nil {
			return apierr.NotFound("source_set_not_found", "source set %s not found", sourceSetID)
		}
		latest, err := s.scripts.GetLatestBySourceSet(inner, sourceSetID)
		if err != nil {
			return err
		}

		if latest != nil && latest.Status == prod.ScriptDraft {
			if err := s.content.Purge(inner, latest.ID); err != nil {
				return fmt.Errorf("purge script %s: %w", latest.ID, err)
			}
			updates := map[string]interface{}{
				"title":              dto.Title,
				"total_duration_sec": dto.TotalDurationSec,
				"llm_model":          dto.LLMModel,
				"raw_payload":        datatypes.JSON(raw),
			}
			if err := s.scripts.UpdateFields(inner, latest.ID, updates); err != nil {
				return err
			}
			latest.Title = dto.Title
			latest.TotalDurationSec = dto.TotalDurationSec
			latest.LLMModel = dto.LLMModel
			latest.RawPayload = datatypes.JSON(raw)
			script = latest
		} else {
			version := 1
			if latest != nil {
				version = latest.Version + 1
			}
			script = &types.Script{
				ID:               uuid.New(),
				EducationID:      set.EducationID,
				SourceSetID:      set.ID,
				Title:            dto.Title,
				TotalDurationSec: dto.TotalDurationSec,
				Version:          version,
				LLMModel:         dto.LLMModel,
				Status:           prod.ScriptDraft,
				RawPayload:       datatypes.JSON(raw),
			}
			if err := s.scripts.Create(inner, script); err != nil {
				return err
			}
		}

		discarded := 0
		for _, ch := range dto.Chapters {
			chapter := &types.ScriptChapter{
				ID:           uuid.New(),
				ScriptID:     script.ID,
				ChapterIndex: ch.ChapterIndex,
				Title:        ch.Title,
				DurationSec:  ch.DurationSec,
			}
			if err := s.content.CreateChapter(inner, chapter); err != nil {
				return err
			}
			scenes := make([]*types.ScriptScene, 0, len(ch.Scenes))
			for i := range ch.Scenes {
				sc := &ch.Scenes[i]
				if sc.blank() {
					discarded++
					continue
				}
				scenes = append(scenes, sceneFromDTO(script.ID, chapter.ID, sc.SceneIndex, sc))
			}
			if err := s.content.CreateScenes(inner, scenes); err != nil {
				return err
			}
		}
		if discarded > 0 {
			s.log.Warn("discarded blank scenes", "script_id", script.ID, "count", discarded)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("full script ingested", "script_id", script.ID, "source_set_id", sourceSetID, "version", script.Version, "chapters", len(dto.Chapters))
	return script, nil
}

func (s *scriptService) IngestScenePatch(dbc dbctx.Context, sourceSetID uuid.UUID, patch *ScenePatchDTO) (*types.Script, bool, error) {
	if patch == nil {
		return nil, false, apierr.BadRequest("patch_missing", "scene patch is required")
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, false, apierr.BadRequest("patch_invalid", "invalid scene patch: %v", err)
	}

	var script *types.Script
	saved := false
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		set, err := s.sourceSets.GetByID(inner, sourceSetID)
		if err != nil {
			return err
		}
		if set == nil {
			return apierr.NotFound("source_set_not_found", "source set %s not found", sourceSetID)
		}

		script, err = s.patchTarget(inner, set, patch.ScriptID)
		if err != nil || script == nil {
			return err
		}
		if patch.Scene.blank() {
			s.log.Warn("discarded blank scene patch", "script_id", script.ID, "chapter_index", patch.ChapterIndex, "scene_index", patch.SceneIndex)
			return nil
		}

		chapter, err := s.content.GetChapter(inner, script.ID, patch.ChapterIndex)
		if err != nil {
			return err
		}
		if chapter == nil {
			chapter = &types.ScriptChapter{
				ID:           uuid.New(),
				ScriptID:     script.ID,
				ChapterIndex: patch.ChapterIndex,
				Title:        patch.ChapterTitle,
			}
			if err := s.content.CreateChapter(inner, chapter); err != nil {
				return err
			}
		} else if t := strings.TrimSpace(patch.ChapterTitle); t != "" && t != chapter.Title {
			if err := s.content.UpdateChapter(inner, chapter.ID, map[string]interface{}{"title": t}); err != nil {
				return err
			}
		}

		existing, err := s.content.GetScene(inner, chapter.ID, patch.SceneIndex)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := s.content.CreateScenes(inner, []*types.ScriptScene{sceneFromDTO(script.ID, chapter.ID, patch.SceneIndex, &patch.Scene)}); err != nil {
				return err
			}
		} else {
			if err := s.content.UpdateScene(inner, existing.ID, map[string]interface{}{
				"purpose":              patch.Scene.Purpose,
				"narration":            patch.Scene.Narration,
				"caption":              patch.Scene.Caption,
				"visual":               patch.Scene.Visual,
				"duration_sec":         patch.Scene.DurationSec,
				"confidence_score":     patch.Scene.ConfidenceScore,
				"source_chunk_indexes": datatypes.JSONSlice[int](nonNilInts(patch.Scene.SourceChunkIndexes)),
				"deleted_at":           nil,
			}); err != nil {
				return err
			}
		}
		saved = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return script, saved, nil
}

// patchTarget resolves the script a patch writes into. A nil script with a
// nil error means the patch must be ignored.
func (s *scriptService) patchTarget(dbc dbctx.Context, set *types.SourceSet, scriptID *uuid.UUID) (*types.Script, error) {
	if scriptID != nil && *scriptID != uuid.Nil {
		script, err := s.scripts.GetByID(dbc, *scriptID)
		if err != nil {
			return nil, err
		}
		if script == nil {
			return nil, apierr.NotFound("script_not_found", "script %s not found", *scriptID)
		}
		if script.SourceSetID != set.ID {
			return nil, apierr.BadRequest("script_source_set_mismatch", "script %s does not belong to source set %s", script.ID, set.ID)
		}
		if script.Status != prod.ScriptDraft {
			s.log.Warn("ignoring patch for non-draft script", "script_id", script.ID, "status", script.Status)
			return nil, nil
		}
		return script, nil
	}

	latest, err := s.scripts.GetLatestBySourceSet(dbc, set.ID)
	if err != nil {
		return nil, err
	}
	switch {
	case latest != nil && latest.Status == prod.ScriptDraft:
		return latest, nil
	case latest != nil && latest.Status == prod.ScriptApproved:
		s.log.Warn("ignoring patch after script approval", "script_id", latest.ID, "source_set_id", set.ID)
		return nil, nil
	}
	version := 1
	if latest != nil {
		version = latest.Version + 1
	}
	script := &types.Script{
		ID:          uuid.New(),
		EducationID: set.EducationID,
		SourceSetID: set.ID,
		Version:     version,
		Status:      prod.ScriptDraft,
	}
	if err := s.scripts.Create(dbc, script); err != nil {
		return nil, err
	}
	return script, nil
}

func sceneFromDTO(scriptID, chapterID uuid.UUID, sceneIndex int, d *SceneDTO) *types.ScriptScene {
	return &types.ScriptScene{
		ID:                 uuid.New(),
		ScriptID:           scriptID,
		ChapterID:          chapterID,
		SceneIndex:         sceneIndex,
		Purpose:            d.Purpose,
		Narration:          d.Narration,
		Caption:            d.Caption,
		Visual:             d.Visual,
		DurationSec:        d.DurationSec,
		ConfidenceScore:    d.ConfidenceScore,
		SourceChunkIndexes: datatypes.JSONSlice[int](nonNilInts(d.SourceChunkIndexes)),
	}
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func (s *scriptService) GetRenderSpec(dbc dbctx.Context, scriptID uuid.UUID) (*RenderSpec, error) {
	detail, err := s.GetScript(dbc, scriptID)
	if err != nil {
		return nil, err
	}
	return &RenderSpec{
		ScriptID:         detail.Script.ID,
		Version:          detail.Script.Version,
		Title:            detail.Script.Title,
		TotalDurationSec: detail.Script.TotalDurationSec,
		Chapters:         detail.Chapters,
	}, nil
}

func (s *scriptService) GetScript(dbc dbctx.Context, scriptID uuid.UUID) (*ScriptDetail, error) {
	script, err := s.scripts.GetByID(dbc, scriptID)
	if err != nil {
		return nil, err
	}
	if script == nil {
		return nil, apierr.NotFound("script_not_found", "script %s not found", scriptID)
	}
	chapters, err := s.content.ListChapters(dbc, scriptID)
	if err != nil {
		return nil, err
	}
	scenes, err := s.content.ListScenes(dbc, scriptID)
	if err != nil {
		return nil, err
	}

	byChapter := make(map[uuid.UUID][]RenderScene, len(chapters))
	for _, sc := range scenes {
		byChapter[sc.ChapterID] = append(byChapter[sc.ChapterID], RenderScene{
			SceneID:            sc.ID,
			SceneIndex:         sc.SceneIndex,
			Purpose:            sc.Purpose,
			Narration:          sc.Narration,
			Caption:            sc.Caption,
			Visual:             sc.Visual,
			DurationSec:        sc.DurationSec,
			ConfidenceScore:    sc.ConfidenceScore,
			SourceChunkIndexes: nonNilInts(sc.SourceChunkIndexes),
		})
	}
	out := &ScriptDetail{Script: script, Chapters: make([]RenderChapter, 0, len(chapters))}
	for _, ch := range chapters {
		rs := byChapter[ch.ID]
		if rs == nil {
			rs = []RenderScene{}
		}
		out.Chapters = append(out.Chapters, RenderChapter{
			ChapterIndex: ch.ChapterIndex,
			Title:        ch.Title,
			DurationSec:  ch.DurationSec,
			Scenes:       rs,
		})
	}
	return out, nil
}

func (s *scriptService) ListScriptVersions(dbc dbctx.Context, sourceSetID uuid.UUID) ([]*types.Script, error) {
	set, err := s.sourceSets.GetByID(dbc, sourceSetID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, apierr.NotFound("source_set_not_found", "source set %s not found", sourceSetID)
	}
	return s.scripts.ListBySourceSet(dbc, sourceSetID)
}

func (s *scriptService) SetStatus(dbc dbctx.Context, scriptID uuid.UUID, status types.ScriptStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid script status %q", status)
	}
	return s.scripts.UpdateFields(dbc, scriptID, map[string]interface{}{"status": status})
}

func (s *scriptService) LatestApprovedScenes(dbc dbctx.Context, educationID uuid.UUID) (*types.Script, []*types.ScriptScene, error) {
	script, err := s.scripts.GetLatestApprovedByEducation(dbc, educationID)
	if err != nil || script == nil {
		return nil, nil, err
	}
	scenes, err := s.content.ListScenes(dbc, script.ID)
	if err != nil {
		return nil, nil, err
	}
	return script, scenes, nil
}

package production

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Script struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EducationID      uuid.UUID      `gorm:"type:uuid;column:education_id;not null;index" json:"education_id"`
	SourceSetID      uuid.UUID      `gorm:"type:uuid;column:source_set_id;not null;uniqueIndex:idx_script_version,priority:1" json:"source_set_id"`
	Title            string         `gorm:"column:title" json:"title"`
	TotalDurationSec int            `gorm:"column:total_duration_sec;not null;default:0" json:"total_duration_sec"`
	Version          int            `gorm:"column:version;not null;uniqueIndex:idx_script_version,priority:2" json:"version"`
	LLMModel         string         `gorm:"column:llm_model" json:"llm_model,omitempty"`
	Status           ScriptStatus   `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	RawPayload       datatypes.JSON `gorm:"column:raw_payload;type:jsonb" json:"raw_payload,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Script) TableName() string { return "script" }

type ScriptChapter struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ScriptID     uuid.UUID `gorm:"type:uuid;column:script_id;not null;uniqueIndex:idx_script_chapter,priority:1" json:"script_id"`
	ChapterIndex int       `gorm:"column:chapter_index;not null;uniqueIndex:idx_script_chapter,priority:2" json:"chapter_index"`
	Title        string    `gorm:"column:title" json:"title"`
	DurationSec  int       `gorm:"column:duration_sec;not null;default:0" json:"duration_sec"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ScriptChapter) TableName() string { return "script_chapter" }

type ScriptScene struct {
	ID                 uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	ScriptID           uuid.UUID                `gorm:"type:uuid;column:script_id;not null;index" json:"script_id"`
	ChapterID          uuid.UUID                `gorm:"type:uuid;column:chapter_id;not null;uniqueIndex:idx_script_scene,priority:1" json:"chapter_id"`
	SceneIndex         int                      `gorm:"column:scene_index;not null;uniqueIndex:idx_script_scene,priority:2" json:"scene_index"`
	Purpose            string                   `gorm:"column:purpose" json:"purpose,omitempty"`
	Narration          string                   `gorm:"column:narration;type:text" json:"narration"`
	Caption            string                   `gorm:"column:caption;type:text" json:"caption"`
	Visual             string                   `gorm:"column:visual;type:text" json:"visual"`
	DurationSec        int                      `gorm:"column:duration_sec;not null;default:0" json:"duration_sec"`
	ConfidenceScore    float64                  `gorm:"column:confidence_score;not null;default:0" json:"confidence_score"`
	SourceChunkIndexes datatypes.JSONSlice[int] `gorm:"column:source_chunk_indexes;type:jsonb" json:"source_chunk_indexes"`
	CreatedAt          time.Time                `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time                `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt           `gorm:"index" json:"deleted_at,omitempty"`
}

func (ScriptScene) TableName() string { return "script_scene" }

// Text is the scene's quiz source: narration, then caption, then visual.
func (s *ScriptScene) Text() string {
	return FirstNonBlank(s.Narration, s.Caption, s.Visual)
}

// FirstNonBlank returns the first argument that is not whitespace-only, trimmed.
func FirstNonBlank(vals ...string) string {
	for _, v := range vals {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}

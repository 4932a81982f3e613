package production

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Video is the review state-machine subject. Status changes go through
// the transition table in transitions.go, except UnsafeForceStatus.
type Video struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	EducationID     uuid.UUID                   `gorm:"type:uuid;column:education_id;not null;index" json:"education_id"`
	Title           string                      `gorm:"column:title;not null" json:"title"`
	GenerationJobID *uuid.UUID                  `gorm:"type:uuid;column:generation_job_id" json:"generation_job_id,omitempty"`
	ScriptID        *uuid.UUID                  `gorm:"type:uuid;column:script_id" json:"script_id,omitempty"`
	FileURL         string                      `gorm:"column:file_url" json:"file_url,omitempty"`
	Version         int                         `gorm:"column:version;not null;default:1" json:"version"`
	Duration        int                         `gorm:"column:duration;not null;default:0" json:"duration"`
	Status          VideoStatus                 `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	OrderIndex      int                         `gorm:"column:order_index;not null;default:0" json:"order_index"`
	CreatorUUID     uuid.UUID                   `gorm:"type:uuid;column:creator_uuid;not null" json:"creator_uuid"`
	DepartmentScope datatypes.JSONSlice[string] `gorm:"column:department_scope;type:jsonb" json:"department_scope"`
	CreatedAt       time.Time                   `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time                   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Video) TableName() string { return "video" }

// VideoReview is an append-only rejection record.
type VideoReview struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	VideoID        uuid.UUID      `gorm:"type:uuid;column:video_id;not null;index" json:"video_id"`
	Comment        string         `gorm:"column:comment;type:text;not null" json:"comment"`
	ReviewerUUID   uuid.UUID      `gorm:"type:uuid;column:reviewer_uuid;not null" json:"reviewer_uuid"`
	RejectionStage RejectionStage `gorm:"column:rejection_stage;type:varchar(16);not null" json:"rejection_stage"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (VideoReview) TableName() string { return "video_review" }

type VideoGenerationJob struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EducationID       uuid.UUID  `gorm:"type:uuid;column:education_id;not null;index" json:"education_id"`
	VideoID           uuid.UUID  `gorm:"type:uuid;column:video_id;not null;index" json:"video_id"`
	ScriptID          uuid.UUID  `gorm:"type:uuid;column:script_id;not null" json:"script_id"`
	ScriptVersion     int        `gorm:"column:script_version;not null" json:"script_version"`
	RequestID         uuid.UUID  `gorm:"type:uuid;column:request_id;not null" json:"request_id"`
	Status            JobStatus  `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	RetryCount        int        `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	GeneratedVideoURL string     `gorm:"column:generated_video_url" json:"generated_video_url,omitempty"`
	Duration          int        `gorm:"column:duration;not null;default:0" json:"duration"`
	FailReason        string     `gorm:"column:fail_reason" json:"fail_reason,omitempty"`
	CreatedAt         time.Time  `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (VideoGenerationJob) TableName() string { return "video_generation_job" }

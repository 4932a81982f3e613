package production

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SourceSet bundles externally owned documents that feed exactly one Video's script.
type SourceSet struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string          `gorm:"column:title;not null" json:"title"`
	Domain      string          `gorm:"column:domain" json:"domain,omitempty"`
	RequestedBy uuid.UUID       `gorm:"type:uuid;column:requested_by;not null;index" json:"requested_by"`
	EducationID uuid.UUID       `gorm:"type:uuid;column:education_id;not null;index" json:"education_id"`
	VideoID     uuid.UUID       `gorm:"type:uuid;column:video_id;not null;index" json:"video_id"`
	Status      SourceSetStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	FailReason  string          `gorm:"column:fail_reason" json:"fail_reason,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`

	Documents []*SourceSetDocument `gorm:"foreignKey:SourceSetID" json:"documents,omitempty"`
}

func (SourceSet) TableName() string { return "source_set" }

type SourceSetDocument struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SourceSetID uuid.UUID      `gorm:"type:uuid;column:source_set_id;not null;uniqueIndex:idx_source_set_document,priority:1" json:"source_set_id"`
	DocumentID  uuid.UUID      `gorm:"type:uuid;column:document_id;not null;uniqueIndex:idx_source_set_document,priority:2" json:"document_id"`
	Status      DocumentStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	FailReason  string         `gorm:"column:fail_reason" json:"fail_reason,omitempty"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (SourceSetDocument) TableName() string { return "source_set_document" }

package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Education is the read model of an externally managed course. Only the
// fields the pipeline consumes are mapped.
type Education struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	PassScore *int      `gorm:"column:pass_score" json:"pass_score,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Education) TableName() string { return "education" }

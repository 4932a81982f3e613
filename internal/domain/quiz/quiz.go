package quiz

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultQuestionCount    = 5
	DefaultTimeLimitSeconds = 900
)

type QuizAttempt struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserUUID    uuid.UUID      `gorm:"type:uuid;column:user_uuid;not null;uniqueIndex:idx_quiz_attempt_no,priority:1" json:"user_uuid"`
	EducationID uuid.UUID      `gorm:"type:uuid;column:education_id;not null;uniqueIndex:idx_quiz_attempt_no,priority:2;index" json:"education_id"`
	AttemptNo   int            `gorm:"column:attempt_no;not null;uniqueIndex:idx_quiz_attempt_no,priority:3" json:"attempt_no"`
	Version     int            `gorm:"column:version;not null;default:1" json:"version"`
	TimeLimit   int            `gorm:"column:time_limit;not null" json:"time_limit"`
	Department  string         `gorm:"column:department" json:"department,omitempty"`
	Score       *int           `gorm:"column:score" json:"score,omitempty"`
	Passed      *bool          `gorm:"column:passed" json:"passed,omitempty"`
	SubmittedAt *time.Time     `gorm:"column:submitted_at;index" json:"submitted_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (QuizAttempt) TableName() string { return "quiz_attempt" }

func (a *QuizAttempt) Submitted() bool { return a != nil && a.SubmittedAt != nil }

// Remaining is the time left on the attempt clock at now, never negative.
func (a *QuizAttempt) Remaining(now time.Time) time.Duration {
	left := time.Duration(a.TimeLimit)*time.Second - now.Sub(a.CreatedAt)
	if left < 0 {
		return 0
	}
	return left
}

type QuizQuestion struct {
	ID                    uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID             uuid.UUID                   `gorm:"type:uuid;column:attempt_id;not null;uniqueIndex:idx_quiz_question_order,priority:1" json:"attempt_id"`
	QuestionOrder         int                         `gorm:"column:question_order;not null;uniqueIndex:idx_quiz_question_order,priority:2" json:"question_order"`
	Question              string                      `gorm:"column:question;type:text;not null" json:"question"`
	Options               datatypes.JSONSlice[string] `gorm:"column:options;type:jsonb" json:"options"`
	CorrectOptionIdx      int                         `gorm:"column:correct_option_idx;not null" json:"-"`
	UserSelectedOptionIdx *int                        `gorm:"column:user_selected_option_idx" json:"user_selected_option_idx,omitempty"`
	Explanation           string                      `gorm:"column:explanation;type:text" json:"-"`
	SourceText            string                      `gorm:"column:source_text;type:text" json:"-"`
	CreatedAt             time.Time                   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time                   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (QuizQuestion) TableName() string { return "quiz_question" }

func (q *QuizQuestion) Correct() bool {
	return q.UserSelectedOptionIdx != nil && *q.UserSelectedOptionIdx == q.CorrectOptionIdx
}

type QuizLeaveTracking struct {
	AttemptID         uuid.UUID  `gorm:"type:uuid;column:attempt_id;primaryKey" json:"attempt_id"`
	LeaveCount        int        `gorm:"column:leave_count;not null;default:0" json:"leave_count"`
	TotalLeaveSeconds int        `gorm:"column:total_leave_seconds;not null;default:0" json:"total_leave_seconds"`
	LastLeaveAt       *time.Time `gorm:"column:last_leave_at" json:"last_leave_at,omitempty"`
}

func (QuizLeaveTracking) TableName() string { return "quiz_leave_tracking" }

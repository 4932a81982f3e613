package ops

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ReceiptApplied = "applied"
	ReceiptIgnored = "ignored"

	ScopeSourceSetCallback = "source_set_complete"
	ScopeRenderCallback    = "render_complete"
)

// CallbackReceipt records an inbound callback that was already handled,
// together with the response it produced.
type CallbackReceipt struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Scope      string         `gorm:"column:scope;not null;uniqueIndex:idx_callback_receipt,priority:1" json:"scope"`
	EntityID   uuid.UUID      `gorm:"type:uuid;column:entity_id;not null;uniqueIndex:idx_callback_receipt,priority:2" json:"entity_id"`
	RequestKey string         `gorm:"column:request_key;not null;uniqueIndex:idx_callback_receipt,priority:3" json:"request_key"`
	Outcome    string         `gorm:"column:outcome;not null" json:"outcome"`
	Response   datatypes.JSON `gorm:"column:response;type:jsonb" json:"response,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (CallbackReceipt) TableName() string { return "callback_receipt" }

const (
	DispatchSourceSetStart = "source_set_start"
	DispatchRenderJob      = "render_job"

	DispatchPending = "pending"
	DispatchSent    = "sent"
	DispatchDead    = "dead"
	// DispatchReplayed marks a dead task whose work was re-issued as a new task.
	DispatchReplayed = "replayed"
)

// DispatchTask is the ledger row for one outbound request to the AI service.
type DispatchTask struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind      string         `gorm:"column:kind;not null;index" json:"kind"`
	EntityID  uuid.UUID      `gorm:"type:uuid;column:entity_id;not null;index" json:"entity_id"`
	RequestID uuid.UUID      `gorm:"type:uuid;column:request_id;not null" json:"request_id"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Status    string         `gorm:"column:status;not null;index" json:"status"`
	Attempts  int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError string         `gorm:"column:last_error" json:"last_error,omitempty"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (DispatchTask) TableName() string { return "dispatch_task" }

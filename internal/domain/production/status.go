package production

import (
	"database/sql/driver"
	"strings"

	"github.com/yungbote/eduvideo-backend/internal/domain/enum"
)

type SourceSetStatus string

const (
	SourceSetCreated          SourceSetStatus = "CREATED"
	SourceSetProcessing       SourceSetStatus = "PROCESSING"
	SourceSetScriptGenerating SourceSetStatus = "SCRIPT_GENERATING"
	SourceSetScriptReady      SourceSetStatus = "SCRIPT_READY"
	SourceSetFailed           SourceSetStatus = "FAILED"
	SourceSetLocked           SourceSetStatus = "LOCKED"
)

func (s SourceSetStatus) Valid() bool {
	switch s {
	case SourceSetCreated, SourceSetProcessing, SourceSetScriptGenerating, SourceSetScriptReady, SourceSetFailed, SourceSetLocked:
		return true
	}
	return false
}

func ParseSourceSetStatus(raw string) (SourceSetStatus, error) {
	return enum.Parse(raw, SourceSetStatus.Valid, "source set status")
}
func (s *SourceSetStatus) Scan(src any) error {
	return enum.Scan(s, src, SourceSetStatus.Valid, "source set status")
}
func (s SourceSetStatus) Value() (driver.Value, error) {
	return enum.Value(s, SourceSetStatus.Valid, "source set status")
}

type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "PENDING"
	DocumentCompleted DocumentStatus = "COMPLETED"
	DocumentFailed    DocumentStatus = "FAILED"
)

func (s DocumentStatus) Valid() bool {
	return s == DocumentPending || s == DocumentCompleted || s == DocumentFailed
}

func ParseDocumentStatus(raw string) (DocumentStatus, error) {
	return enum.Parse(raw, DocumentStatus.Valid, "document status")
}
func (s *DocumentStatus) Scan(src any) error {
	return enum.Scan(s, src, DocumentStatus.Valid, "document status")
}
func (s DocumentStatus) Value() (driver.Value, error) {
	return enum.Value(s, DocumentStatus.Valid, "document status")
}

type ScriptStatus string

const (
	ScriptDraft    ScriptStatus = "DRAFT"
	ScriptApproved ScriptStatus = "APPROVED"
	ScriptRejected ScriptStatus = "REJECTED"
)

func (s ScriptStatus) Valid() bool {
	return s == ScriptDraft || s == ScriptApproved || s == ScriptRejected
}
func (s *ScriptStatus) Scan(src any) error {
	return enum.Scan(s, src, ScriptStatus.Valid, "script status")
}
func (s ScriptStatus) Value() (driver.Value, error) {
	return enum.Value(s, ScriptStatus.Valid, "script status")
}

type VideoStatus string

const (
	VideoDraft                VideoStatus = "DRAFT"
	VideoScriptGenerating     VideoStatus = "SCRIPT_GENERATING"
	VideoScriptReady          VideoStatus = "SCRIPT_READY"
	VideoScriptReviewRequest  VideoStatus = "SCRIPT_REVIEW_REQUESTED"
	VideoScriptApproved       VideoStatus = "SCRIPT_APPROVED"
	VideoProcessing           VideoStatus = "PROCESSING"
	VideoReady                VideoStatus = "READY"
	VideoFinalReviewRequested VideoStatus = "FINAL_REVIEW_REQUESTED"
	VideoPublished            VideoStatus = "PUBLISHED"
	VideoDisabled             VideoStatus = "DISABLED"
)

// AllVideoStatuses lists every legal Video status.
var AllVideoStatuses = []VideoStatus{
	VideoDraft,
	VideoScriptGenerating,
	VideoScriptReady,
	VideoScriptReviewRequest,
	VideoScriptApproved,
	VideoProcessing,
	VideoReady,
	VideoFinalReviewRequested,
	VideoPublished,
	VideoDisabled,
}

func (s VideoStatus) Valid() bool {
	for _, v := range AllVideoStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func ParseVideoStatus(raw string) (VideoStatus, error) {
	return enum.Parse(raw, VideoStatus.Valid, "video status")
}
func (s *VideoStatus) Scan(src any) error {
	return enum.Scan(s, src, VideoStatus.Valid, "video status")
}
func (s VideoStatus) Value() (driver.Value, error) {
	return enum.Value(s, VideoStatus.Valid, "video status")
}

type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

func (s JobStatus) Valid() bool {
	return s == JobQueued || s == JobProcessing || s == JobCompleted || s == JobFailed
}

func (s JobStatus) Terminal() bool { return s == JobCompleted || s == JobFailed }

func (s *JobStatus) Scan(src any) error {
	return enum.Scan(s, src, JobStatus.Valid, "job status")
}
func (s JobStatus) Value() (driver.Value, error) {
	return enum.Value(s, JobStatus.Valid, "job status")
}

// ParseRenderOutcome maps a renderer-reported status onto a job status.
// SUCCEEDED is accepted as a synonym of COMPLETED.
func ParseRenderOutcome(raw string) (JobStatus, error) {
	if strings.EqualFold(strings.TrimSpace(raw), "SUCCEEDED") {
		return JobCompleted, nil
	}
	return enum.Parse(raw, JobStatus.Valid, "render status")
}

type RejectionStage string

const (
	RejectionStageScript RejectionStage = "SCRIPT"
	RejectionStageVideo  RejectionStage = "VIDEO"
)

func (s RejectionStage) Valid() bool { return s == RejectionStageScript || s == RejectionStageVideo }
func (s *RejectionStage) Scan(src any) error {
	return enum.Scan(s, src, RejectionStage.Valid, "rejection stage")
}
func (s RejectionStage) Value() (driver.Value, error) {
	return enum.Value(s, RejectionStage.Valid, "rejection stage")
}

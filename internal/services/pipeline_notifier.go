package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/eduvideo-backend/internal/domain"
	"github.com/yungbote/eduvideo-backend/internal/realtime"
)

// PipelineNotifier pushes progress to reviewers watching a video. Calls are
// made after the owning transaction commits.
type PipelineNotifier interface {
	VideoStatusChanged(ctx context.Context, change *StatusChange)
	SourceSetUpdated(ctx context.Context, set *types.SourceSet)
	ScenePatched(ctx context.Context, videoID, scriptID uuid.UUID, chapterIndex, sceneIndex int)
	RenderJobUpdated(ctx context.Context, job *types.VideoGenerationJob)
	DispatchDeadLettered(ctx context.Context, videoID uuid.UUID, task *types.DispatchTask)
}

type pipelineNotifier struct {
	emit SSEEmitter
}

func NewPipelineNotifier(emit SSEEmitter) PipelineNotifier {
	if emit == nil {
		emit = nopEmitter{}
	}
	return &pipelineNotifier{emit: emit}
}

func (n *pipelineNotifier) VideoStatusChanged(ctx context.Context, change *StatusChange) {
	if change == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.VideoChannel(change.VideoID),
		Event:   realtime.SSEEventVideoStatusChanged,
		Data:    change,
	})
}

func (n *pipelineNotifier) SourceSetUpdated(ctx context.Context, set *types.SourceSet) {
	if set == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.VideoChannel(set.VideoID),
		Event:   realtime.SSEEventSourceSetUpdated,
		Data: map[string]any{
			"source_set_id": set.ID,
			"status":        set.Status,
		},
	})
}

func (n *pipelineNotifier) ScenePatched(ctx context.Context, videoID, scriptID uuid.UUID, chapterIndex, sceneIndex int) {
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.VideoChannel(videoID),
		Event:   realtime.SSEEventScriptScenePatched,
		Data: map[string]any{
			"script_id":     scriptID,
			"chapter_index": chapterIndex,
			"scene_index":   sceneIndex,
		},
	})
}

func (n *pipelineNotifier) RenderJobUpdated(ctx context.Context, job *types.VideoGenerationJob) {
	if job == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.VideoChannel(job.VideoID),
		Event:   realtime.SSEEventRenderJobUpdated,
		Data: map[string]any{
			"job_id":      job.ID,
			"status":      job.Status,
			"retry_count": job.RetryCount,
			"fail_reason": job.FailReason,
		},
	})
}

func (n *pipelineNotifier) DispatchDeadLettered(ctx context.Context, videoID uuid.UUID, task *types.DispatchTask) {
	if task == nil || videoID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.VideoChannel(videoID),
		Event:   realtime.SSEEventDispatchDeadLetter,
		Data: map[string]any{
			"task_id":    task.ID,
			"kind":       task.Kind,
			"entity_id":  task.EntityID,
			"last_error": task.LastError,
		},
	})
}

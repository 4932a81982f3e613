package production

import (
	"fmt"
	"sort"
)

type VideoAction string

const (
	ActionScriptPatched   VideoAction = "scriptPatched"
	ActionScriptReady     VideoAction = "scriptReady"
	ActionRequestReview   VideoAction = "requestReview"
	ActionApprove         VideoAction = "approve"
	ActionReject          VideoAction = "reject"
	ActionStartRender     VideoAction = "startRender"
	ActionRenderCompleted VideoAction = "renderCompleted"
	ActionRenderFailed    VideoAction = "renderFailed"
	ActionDisable         VideoAction = "disable"
	ActionEnable          VideoAction = "enable"
	// ActionPublish is kept for older clients and behaves exactly like ActionApprove.
	ActionPublish VideoAction = "publish"
)

var videoTransitions = map[VideoAction]map[VideoStatus]VideoStatus{
	ActionScriptPatched: {
		VideoDraft:            VideoScriptGenerating,
		VideoScriptGenerating: VideoScriptGenerating,
	},
	ActionScriptReady: {
		VideoDraft:            VideoScriptReady,
		VideoScriptGenerating: VideoScriptReady,
		VideoScriptReady:      VideoScriptReady,
	},
	ActionRequestReview: {
		VideoScriptReady: VideoScriptReviewRequest,
		VideoReady:       VideoFinalReviewRequested,
	},
	ActionApprove: {
		VideoScriptReviewRequest:  VideoScriptApproved,
		VideoFinalReviewRequested: VideoPublished,
	},
	ActionReject: {
		VideoScriptReviewRequest:  VideoScriptReady,
		VideoFinalReviewRequested: VideoReady,
	},
	ActionStartRender:     {VideoScriptApproved: VideoProcessing},
	ActionRenderCompleted: {VideoProcessing: VideoReady},
	ActionRenderFailed:    {VideoProcessing: VideoScriptApproved},
	ActionDisable:         {VideoPublished: VideoDisabled},
	ActionEnable:          {VideoDisabled: VideoPublished},
}

func canonicalAction(a VideoAction) VideoAction {
	if a == ActionPublish {
		return ActionApprove
	}
	return a
}

// InvalidTransitionError reports an action attempted from a state with no outgoing edge for it.
type InvalidTransitionError struct {
	Action VideoAction
	From   VideoStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a video in status %s", e.Action, e.From)
}

// NextVideoStatus resolves the target state for action taken from from.
func NextVideoStatus(action VideoAction, from VideoStatus) (VideoStatus, error) {
	edges, ok := videoTransitions[canonicalAction(action)]
	if !ok {
		return "", fmt.Errorf("unknown video action %q", action)
	}
	to, ok := edges[from]
	if !ok {
		return "", &InvalidTransitionError{Action: action, From: from}
	}
	return to, nil
}

// SourceStates lists the states an action may leave from, sorted for stable SQL.
func SourceStates(action VideoAction) []VideoStatus {
	edges := videoTransitions[canonicalAction(action)]
	out := make([]VideoStatus, 0, len(edges))
	for from := range edges {
		out = append(out, from)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ReviewStage names the gate a video waiting for review sits at.
func ReviewStage(status VideoStatus) (RejectionStage, bool) {
	switch status {
	case VideoScriptReviewRequest:
		return RejectionStageScript, true
	case VideoFinalReviewRequested:
		return RejectionStageVideo, true
	}
	return "", false
}

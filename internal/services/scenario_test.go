package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	prod "github.com/yungbote/eduvideo-backend/internal/domain/production"
)

func TestProductionScenario(t *testing.T) {
	h := newHarness(t)
	edu := h.education(nil)
	v := h.video(edu)
	set := h.sourceSet(edu, v, uuid.New(), uuid.New())
	if len(set.Documents) != 2 {
		t.Fatalf("documents: want=2 got=%d", len(set.Documents))
	}

	script := &ScriptDTO{
		Title: "Ladder safety",
		Chapters: []ChapterDTO{{
			ChapterIndex: 0,
			Title:        "Setup",
			Scenes: []SceneDTO{
				{SceneIndex: 0, Narration: "Check the feet of the ladder."},
				{SceneIndex: 1, Narration: "Keep three points of contact."},
			},
		}},
	}
	res, err := h.sets.HandleCompletionCallback(h.dbc(), set.ID, &SourceSetCallback{
		RequestID: "scenario",
		VideoID:   &v.ID,
		Status:    CallbackStatusCompleted,
		Script:    script,
	})
	if err != nil {
		t.Fatalf("HandleCompletionCallback: %v", err)
	}
	video := h.reloadVideo(v.ID)
	if video.Status != prod.VideoScriptReady || video.ScriptID == nil || *video.ScriptID != *res.ScriptID {
		t.Fatalf("video: status=%s script=%v", video.Status, video.ScriptID)
	}

	if _, err := h.review.RequestReview(h.dbc(), v.ID); err != nil {
		t.Fatalf("RequestReview: %v", err)
	}
	change, err := h.review.Approve(h.dbc(), v.ID, uuid.New())
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if change.Status != prod.VideoScriptApproved {
		t.Fatalf("status: want=%s got=%s", prod.VideoScriptApproved, change.Status)
	}
}

func TestConcurrentIdenticalCallbacksApplyOnce(t *testing.T) {
	h := newHarness(t)
	edu := h.education(nil)
	v := h.video(edu)
	set := h.sourceSet(edu, v)
	payload := &SourceSetCallback{RequestID: "dup", Status: CallbackStatusCompleted, Script: sampleScript()}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.sets.HandleCompletionCallback(h.dbc(), set.ID, payload)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("HandleCompletionCallback: %v", err)
		}
	}

	versions, err := h.scripts.ListScriptVersions(h.dbc(), set.ID)
	if err != nil {
		t.Fatalf("ListScriptVersions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("script versions: want=1 got=%d", len(versions))
	}
	chapters, err := h.content.ListChapters(h.dbc(), versions[0].ID)
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	scenes, err := h.content.ListScenes(h.dbc(), versions[0].ID)
	if err != nil {
		t.Fatalf("ListScenes: %v", err)
	}
	if len(chapters) != 2 || len(scenes) != 3 {
		t.Fatalf("rows: chapters=%d scenes=%d", len(chapters), len(scenes))
	}
}

func TestRejectReasonRoundTrips(t *testing.T) {
	h := newHarness(t)
	_, v, _, _ := h.readyForReview()
	if _, err := h.review.RequestReview(h.dbc(), v.ID); err != nil {
		t.Fatalf("RequestReview: %v", err)
	}
	reason := "Scene 2: caption contradicts narration ⚠ (see SOP §4.1)"
	if _, err := h.review.Reject(h.dbc(), v.ID, uuid.New(), reason); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	events, err := h.review.GetReviewHistory(h.dbc(), v.ID)
	if err != nil {
		t.Fatalf("GetReviewHistory: %v", err)
	}
	last := events[len(events)-1]
	if last.Type != ReviewEventRejected || last.Comment != reason {
		t.Fatalf("rejection event: type=%s comment=%q", last.Type, last.Comment)
	}
}

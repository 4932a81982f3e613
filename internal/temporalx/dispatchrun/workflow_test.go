package dispatchrun

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/yungbote/eduvideo-backend/internal/platform/apierr"
)

func runReplay(t *testing.T, act func(ctx context.Context, in ReplayInput) (ReplayResult, error)) (ReplayResult, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivityWithOptions(act, activity.RegisterOptions{Name: ActivityReplay})
	env.ExecuteWorkflow(Workflow, ReplayInput{TaskID: "5b0e7c2e-3f7a-4f44-9d53-0d5c2e1f9a10"})
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	var out ReplayResult
	err := env.GetWorkflowError()
	if err == nil {
		if gerr := env.GetWorkflowResult(&out); gerr != nil {
			t.Fatalf("GetWorkflowResult: %v", gerr)
		}
	}
	return out, err
}

func TestWorkflowReplaysOnce(t *testing.T) {
	calls := 0
	out, err := runReplay(t, func(ctx context.Context, in ReplayInput) (ReplayResult, error) {
		calls++
		return ReplayResult{TaskID: in.TaskID, Status: "replayed"}, nil
	})
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	if calls != 1 || out.Status != "replayed" {
		t.Fatalf("want one call with status replayed, got calls=%d status=%s", calls, out.Status)
	}
}

func TestWorkflowRetriesTransientFailures(t *testing.T) {
	calls := 0
	_, err := runReplay(t, func(ctx context.Context, in ReplayInput) (ReplayResult, error) {
		calls++
		if calls < 3 {
			return ReplayResult{}, errors.New("ai service unavailable")
		}
		return ReplayResult{TaskID: in.TaskID, Status: "replayed"}, nil
	})
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls: want=3 got=%d", calls)
	}
}

func TestWorkflowStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	_, err := runReplay(t, func(ctx context.Context, in ReplayInput) (ReplayResult, error) {
		calls++
		return ReplayResult{}, errors.New("still down")
	})
	if err == nil {
		t.Fatalf("expected workflow error")
	}
	if calls != 5 {
		t.Fatalf("calls: want=5 got=%d", calls)
	}
}

func TestWorkflowDoesNotRetryConflicts(t *testing.T) {
	calls := 0
	_, err := runReplay(t, func(ctx context.Context, in ReplayInput) (ReplayResult, error) {
		calls++
		return ReplayResult{}, classify(apierr.Conflict("dispatch_task_not_dead", "task is sent"))
	})
	if err == nil {
		t.Fatalf("expected workflow error")
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err       error
		wantType  string
		retryable bool
	}{
		{apierr.NotFound("dispatch_task_not_found", "missing"), ErrTypeNotFound, false},
		{apierr.Conflict("dispatch_task_not_dead", "sent"), ErrTypeConflict, false},
		{apierr.BadRequest("video_not_approved", "draft"), ErrTypeInvalid, false},
		{fmt.Errorf("dial tcp: refused"), "", true},
	}
	for _, tc := range cases {
		got := classify(tc.err)
		var appErr *temporal.ApplicationError
		if !errors.As(got, &appErr) {
			if !tc.retryable {
				t.Fatalf("%v: want application error", tc.err)
			}
			continue
		}
		if appErr.Type() != tc.wantType || appErr.NonRetryable() == tc.retryable {
			t.Fatalf("%v: want type=%s retryable=%v got type=%s nonRetryable=%v", tc.err, tc.wantType, tc.retryable, appErr.Type(), appErr.NonRetryable())
		}
	}
}

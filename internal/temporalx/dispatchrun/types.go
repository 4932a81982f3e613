package dispatchrun

const (
	WorkflowName   = "dispatch_replay"
	ActivityReplay = "dispatch_replay_task"

	// Application error types the workflow never retries.
	ErrTypeNotFound = "dispatch_task_not_found"
	ErrTypeConflict = "dispatch_task_not_dead"
	ErrTypeInvalid  = "dispatch_task_invalid"
)

const DefaultMaxAttempts = 5

type ReplayInput struct {
	TaskID string `json:"task_id"`
	// MaxAttempts bounds activity retries; zero means DefaultMaxAttempts.
	MaxAttempts int `json:"max_attempts,omitempty"`
}

type ReplayResult struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

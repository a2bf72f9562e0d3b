package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Job types handled by the back-office worker pool.
const (
	TypeWorkflowEscalate = "workflow.escalate"
	TypeNotifyDispatch   = "notify.dispatch"
)

// Job statuses as stored in the jobs table.
const (
	StatusQueued     = "queued"
	StatusRetry      = "retry"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Job is one persisted unit of background work. Scheduled jobs stay
// invisible to workers until ScheduledAt passes.
type Job struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}

// Handler processes one job. A non-nil error triggers a retry with backoff
// until MaxAttempts, then the job moves to the dead-letter table.
type Handler func(ctx context.Context, j *Job) error

var ErrMaxAttempts = errors.New("max attempts reached")

// BackoffDuration returns the retry delay after the given attempt count,
// doubling from one second and capped at five minutes.
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if maxDelay := 5 * time.Minute; d > maxDelay {
		return maxDelay
	}
	return d
}

// EscalatePayload rides on workflow.escalate jobs.
type EscalatePayload struct {
	OrgID      int64  `json:"org_id"`
	InstanceID string `json:"instance_id"`
	RuleName   string `json:"rule_name"`
}

// NotifyPayload rides on notify.dispatch jobs.
type NotifyPayload struct {
	OrgID   int64  `json:"org_id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

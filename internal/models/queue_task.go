package models

import "time"

// Task status values. The state machine is enforced by the scheduler, not
// by this type; see internal/scheduler.
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusPaused    = "paused"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// MinRetryInterval is the floor for QueueTask.RetryInterval, in seconds.
const MinRetryInterval = 15

// MaxRetryBackoff caps the exponential backoff applied after a 429 from OVH.
const MaxRetryBackoff = 600

// QueueTask is a standing purchase intent: N units of a plan, in priority
// order across datacenters, retried on a cadence until fulfilled.
type QueueTask struct {
	ID       string `json:"id"`
	AccountID string `json:"accountId"`

	PlanCode    string   `json:"planCode"`
	Datacenters []string `json:"datacenters"` // priority order, first wins ties
	Options     []string `json:"options"`

	Quantity      int  `json:"quantity"`
	RetryInterval int  `json:"retryInterval"` // seconds, >= MinRetryInterval
	AutoPay       bool `json:"autoPay"`

	Status        string `json:"status"`
	RetryCount    int    `json:"retryCount"`
	FailureCount  int    `json:"failureCount"`
	Purchased     int    `json:"purchased"`
	NextAttemptAt int64  `json:"nextAttemptAt"` // epoch seconds

	// BackoffSeconds is the delay applied by the most recent 429 response, if
	// any; it resets to 0 once an attempt is no longer rate-limited. Doubled
	// (capped at MaxRetryBackoff) on each consecutive 429.
	BackoffSeconds int `json:"backoffSeconds,omitempty"`

	ErrorMessage string `json:"errorMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Terminal reports whether the task will never tick again without an
// explicit operator action (restart/resume).
func (t *QueueTask) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// Due reports whether the task should be considered for a scheduler tick
// at the given instant.
func (t *QueueTask) Due(now time.Time) bool {
	return t.Status == TaskStatusRunning && t.NextAttemptAt <= now.Unix()
}

// Clone returns a deep-enough copy for safe mutation outside the store's lock.
func (t *QueueTask) Clone() *QueueTask {
	cp := *t
	cp.Datacenters = append([]string(nil), t.Datacenters...)
	cp.Options = append([]string(nil), t.Options...)
	return &cp
}

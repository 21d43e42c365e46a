package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskTypeTokenCleanup = "bind:token_cleanup"

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// TokenCleanupPayload controls how long used and expired tokens are retained
// before the cleanup job removes them.
type TokenCleanupPayload struct {
	RetainMinutes int `json:"retain_minutes"`
}

// Retain converts the payload into a duration.
func (p TokenCleanupPayload) Retain() time.Duration {
	if p.RetainMinutes <= 0 {
		return 0
	}

	return time.Duration(p.RetainMinutes) * time.Minute
}

// NewTokenCleanupTask builds the periodic cleanup task.
func NewTokenCleanupTask(retain time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(TokenCleanupPayload{RetainMinutes: int(retain / time.Minute)})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeTokenCleanup, payload, asynq.Queue(QueueLow)), nil
}

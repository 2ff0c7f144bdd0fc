package types

import "time"

type Health struct {
	Status      string    `json:"status" description:"healthy or unhealthy."`
	ActiveTasks int64     `json:"active_tasks" description:"Count of tasks that have not yet reached a terminal state."`
	Timestamp   time.Time `json:"timestamp"`
	Reason      string    `json:"reason,omitempty" description:"Set when unhealthy."`
}

package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "JOB_STATE_CHANGED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const JobStateChanged = "JOB_STATE_CHANGED"

// NewJobStateChanged builds the event published whenever a job's lifecycle
// state moves, whether by submission or by a daemon callback.
func NewJobStateChanged(jobID, owner, previous, current string) Event {
	return BaseEvent{
		Type: JobStateChanged,
		Data: map[string]interface{}{
			"job_id":   jobID,
			"owner":    owner,
			"previous": previous,
			"current":  current,
		},
		OccurredAt: time.Now(),
	}
}

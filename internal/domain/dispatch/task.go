package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskTypeDispatchEvent is the asynq task type for fanning out an event.
const TaskTypeDispatchEvent = "dispatch:event"

// NewDispatchEventTask creates a new asynq task carrying the event.
func NewDispatchEventTask(ev *Event) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshaling task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeDispatchEvent, payload), nil
}

// ParseDispatchEventPayload deserializes the task payload.
func ParseDispatchEventPayload(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshaling task payload: %w", err)
	}
	return &ev, nil
}

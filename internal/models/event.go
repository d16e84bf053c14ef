package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType categorizes journal events.
type EventType string

const (
	// Sequence run events
	EventTypeRunStarted   EventType = "run.started"
	EventTypeRunStep      EventType = "run.step"
	EventTypeRunCompleted EventType = "run.completed"
	EventTypeRunCancelled EventType = "run.cancelled"
	EventTypeRunFailed    EventType = "run.failed"
	EventTypeRunStopped   EventType = "run.stopped"

	// Loop events
	EventTypeLoopStarted   EventType = "loop.started"
	EventTypeLoopIteration EventType = "loop.iteration"
	EventTypeLoopCompleted EventType = "loop.completed"
	EventTypeLoopCancelled EventType = "loop.cancelled"
	EventTypeLoopFailed    EventType = "loop.failed"
	EventTypeLoopStopped   EventType = "loop.stopped"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeSequence EntityType = "sequence"
	EntityTypeLoop     EntityType = "loop"
)

// Event represents an append-only journal entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of run this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the run ID.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the event is valid.
func (e *Event) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(string(e.Type)) == "" {
		validation.AddMessage("type", "event type is required")
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		validation.AddMessage("entity_type", "entity_type is required")
	}
	if strings.TrimSpace(e.EntityID) == "" {
		validation.AddMessage("entity_id", "entity_id is required")
	}
	return validation.Err()
}

// RunStartedPayload is the payload for run.started events.
type RunStartedPayload struct {
	Sequence     string `json:"sequence"`
	Instructions int    `json:"instructions"`
}

// RunStepPayload is the payload for run.step events.
type RunStepPayload struct {
	Index  int    `json:"index"`
	Action string `json:"action"`
	Async  bool   `json:"async"`
}

// RunFailedPayload is the payload for run.failed and loop.failed events.
type RunFailedPayload struct {
	Error string `json:"error"`
	Index int    `json:"index,omitempty"`
}

// LoopStartedPayload is the payload for loop.started events.
type LoopStartedPayload struct {
	Action     string `json:"action"`
	Iterations int    `json:"iterations"`
	Delay      string `json:"delay"`
	Async      bool   `json:"async"`
}

// LoopIterationPayload is the payload for loop.iteration events.
type LoopIterationPayload struct {
	Iteration int `json:"iteration"`
	Remaining int `json:"remaining"`
}

package operations

import (
	"context"
	"time"
)

// Event types
const (
	EventOperationStarted   = "operation:started"
	EventOperationCompleted = "operation:completed"
	EventOperationFailed    = "operation:failed"
	EventStepStarted        = "step:started"
	EventStepCompleted      = "step:completed"
	EventStepFailed         = "step:failed"
	EventStepSkipped        = "step:skipped"
)

// Event is a progress notification emitted while an operation runs.
type Event struct {
	Type        string    `json:"type"`
	OperationID string    `json:"operation_id"`
	Step        string    `json:"step,omitempty"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}

// Observer receives operation events. Notify is called synchronously from
// the goroutine running the operation and must not block.
type Observer interface {
	Notify(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// Notify calls f.
func (f ObserverFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

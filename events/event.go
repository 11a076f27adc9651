// Package events implements the observability bus (C9): a best-effort
// broadcast of typed pipeline lifecycle events to external sinks. No
// operation in the pipeline ever fails because an event failed to
// deliver — Emit swallows sink errors after logging them.
package events

import "time"

// HookEventType enumerates the lifecycle events the pipeline announces.
type HookEventType string

const (
	EventPredictorReady      HookEventType = "predictor.ready"
	EventPredictionCreated   HookEventType = "prediction.created"
	EventPredictionRefreshed HookEventType = "prediction.refreshed"
	EventPositionsCreated    HookEventType = "positions.created"
)

// Status is the outcome of the step that produced the event.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Event is the wire schema pushed to every registered Sink. Payload
// carries the event-specific body (e.g. a Prediction or Predictor),
// left as interface{} so sinks can marshal it independently of the
// domain packages that produce events.
type Event struct {
	Context       string        `json:"context"`
	SourceApp     string        `json:"source_app"`
	HookEventType HookEventType `json:"hook_event_type"`
	Status        Status        `json:"status"`
	Message       string        `json:"message"`
	Step          string        `json:"step"`
	Payload       interface{}   `json:"payload,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Sink receives events. A Sink returning an error does not interrupt
// the bus's delivery to other sinks and never propagates back to the
// operation that raised the event.
type Sink interface {
	Push(event Event) error
}

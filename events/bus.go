package events

import (
	"time"

	"github.com/GolferGeek/predictor-pipeline/core"
)

// Bus is the observability bus (C9): it fans each lifecycle event out to
// every registered sink, never letting a sink failure propagate back to
// the caller. Sink errors are rate-limited into the log so a dead
// webhook doesn't flood output, matching the registry's error-reporting
// behavior for metric emission.
type Bus struct {
	sourceApp string
	sinks     []Sink
	logger    core.Logger
	clock     core.Clock

	errLimiter *rateLimiter
}

// NewBus creates a bus that stamps every event with sourceApp and
// broadcasts to sinks. logger and clock default to no-ops / RealClock
// when nil.
func NewBus(sourceApp string, clock core.Clock, logger core.Logger, sinks ...Sink) *Bus {
	if clock == nil {
		clock = core.RealClock{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("pipeline/events")
	}
	return &Bus{
		sourceApp:  sourceApp,
		sinks:      sinks,
		logger:     logger,
		clock:      clock,
		errLimiter: newRateLimiter(time.Second),
	}
}

// Emit stamps context/source_app/timestamp and pushes to every sink.
// It never returns an error: delivery is best-effort by design, so the
// operation that raised the event keeps running regardless of whether
// any sink accepted it.
func (b *Bus) Emit(context_, step, message string, hookEventType HookEventType, status Status, payload interface{}) {
	evt := Event{
		Context:       context_,
		SourceApp:     b.sourceApp,
		HookEventType: hookEventType,
		Status:        status,
		Message:       message,
		Step:          step,
		Payload:       payload,
		Timestamp:     b.clock.Now(),
	}
	for _, sink := range b.sinks {
		if err := sink.Push(evt); err != nil && b.errLimiter.allow() {
			b.logger.Warn("observability sink rejected event", map[string]interface{}{
				"hook_event_type": string(hookEventType),
				"step":            step,
				"error":           err.Error(),
			})
		}
	}
}

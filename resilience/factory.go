package resilience

import (
	"context"

	"github.com/GolferGeek/predictor-pipeline/core"
)

// Dependencies holds the optional collaborators a resilience-wrapped
// caller may supply, following the same constructor-injection pattern used
// throughout the pipeline (see design note on DI containers).
type Dependencies struct {
	Logger core.Logger
}

// RetryingCaller composes a RetryConfig with a ServiceHealthTracker so
// every call site wraps external calls the same way instead of
// re-implementing backoff and health bookkeeping per component.
type RetryingCaller struct {
	Service string
	Config  *RetryConfig
	Health  *ServiceHealthTracker
	Logger  core.Logger
}

// NewRetryingCaller builds a caller for service, registering its tracker
// with registry so the composition site can report health across all
// external dependencies from one place.
func NewRetryingCaller(service string, config *RetryConfig, registry *HealthRegistry, deps Dependencies) *RetryingCaller {
	if config == nil {
		config = DefaultRetryConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("pipeline/resilience")
	}
	return &RetryingCaller{
		Service: service,
		Config:  config,
		Health:  registry.Tracker(service),
		Logger:  logger,
	}
}

// Execute wraps fn with this caller's retry config and health tracker,
// logging a warning once retries exhaust.
func (c *RetryingCaller) Execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := Retry(ctx, c.Config, c.Health, fn)
	if err != nil {
		c.Logger.Warn("external call failed after retries", map[string]interface{}{
			"service":   c.Service,
			"operation": op,
			"error":     err.Error(),
			"health":    string(c.Health.Status().Status),
		})
	}
	return err
}

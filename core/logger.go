package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// StructuredLogger is the default ComponentAwareLogger implementation.
// It follows a layered observability pattern:
//
//   - Layer 1: console output (always works) — JSON in Kubernetes, text locally.
//   - Layer 2: metrics emission (once an events sink registers itself via
//     SetMetricsRegistry, every emitted log line also increments a counter).
//
// Configuration priority: explicit constructor args, then environment
// variables (PIPELINE_LOG_LEVEL, PIPELINE_DEBUG, PIPELINE_LOG_FORMAT),
// then auto-detection (KUBERNETES_SERVICE_HOST), then defaults.
type StructuredLogger struct {
	mu             sync.RWMutex
	level          string
	debug          bool
	serviceName    string
	component      string
	format         string
	output         io.Writer
	metricsEnabled bool
	errorLimiter   *rateLimiter
}

// NewStructuredLogger creates a root logger for serviceName. Use
// WithComponent to derive per-component children that share the same
// sink and configuration.
func NewStructuredLogger(serviceName string) *StructuredLogger {
	level := os.Getenv(EnvLogLevel)
	if level == "" {
		level = "INFO"
	}
	debug := os.Getenv(EnvDebug) == "true" || strings.ToUpper(level) == "DEBUG"

	format := "text"
	if os.Getenv(EnvKubernetesMarker) != "" {
		format = "json"
	}
	if envFormat := os.Getenv(EnvLogFormat); envFormat != "" {
		format = envFormat
	}

	l := &StructuredLogger{
		level:        strings.ToUpper(level),
		debug:        debug,
		serviceName:  serviceName,
		format:       format,
		output:       os.Stdout,
		errorLimiter: newRateLimiter(1 * time.Second),
	}
	trackLogger(l)
	return l
}

// WithComponent returns a logger that tags every line with component,
// sharing this logger's output, level, and format.
func (l *StructuredLogger) WithComponent(component string) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &StructuredLogger{
		level:          l.level,
		debug:          l.debug,
		serviceName:    l.serviceName,
		component:      component,
		format:         l.format,
		output:         l.output,
		metricsEnabled: l.metricsEnabled,
		errorLimiter:   l.errorLimiter,
	}
}

func (l *StructuredLogger) Info(msg string, fields map[string]interface{})  { l.log("INFO", msg, fields) }
func (l *StructuredLogger) Warn(msg string, fields map[string]interface{})  { l.log("WARN", msg, fields) }
func (l *StructuredLogger) Debug(msg string, fields map[string]interface{}) {
	if !l.debug {
		return
	}
	l.log("DEBUG", msg, fields)
}

// Error is rate-limited to one emission per second per root logger (children
// from WithComponent share their parent's limiter) so a cascading failure
// doesn't flood the console or the metrics sink.
func (l *StructuredLogger) Error(msg string, fields map[string]interface{}) {
	if l.errorLimiter != nil && !l.errorLimiter.allow() {
		return
	}
	l.log("ERROR", msg, fields)
}

func (l *StructuredLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Info(msg, mergeContextFields(ctx, fields))
}

func (l *StructuredLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Error(msg, mergeContextFields(ctx, fields))
}

func (l *StructuredLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Warn(msg, mergeContextFields(ctx, fields))
}

func (l *StructuredLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Debug(msg, mergeContextFields(ctx, fields))
}

// contextKey correlates a target/prediction id carried on ctx so call
// sites don't need to re-state it in every field map.
type contextKey string

const contextFieldsKey contextKey = "pipeline_log_fields"

// WithLogFields attaches correlation fields (e.g. target_id, prediction_id)
// to ctx so every *WithContext log call downstream includes them.
func WithLogFields(ctx context.Context, fields map[string]interface{}) context.Context {
	return context.WithValue(ctx, contextFieldsKey, fields)
}

func mergeContextFields(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	carried, _ := ctx.Value(contextFieldsKey).(map[string]interface{})
	if len(carried) == 0 {
		return fields
	}
	merged := make(map[string]interface{}, len(carried)+len(fields))
	for k, v := range carried {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func (l *StructuredLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.shouldLog(level) {
		return
	}

	timestamp := time.Now().Format(time.RFC3339)
	if l.format == "json" {
		l.logJSON(timestamp, level, msg, fields)
	} else {
		l.logText(timestamp, level, msg, fields)
	}

	l.emitLogMetric(level, fields)
}

func (l *StructuredLogger) logJSON(timestamp, level, msg string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"service":   l.serviceName,
		"component": l.componentOrDefault(),
		"message":   msg,
	}
	for k, v := range fields {
		if k == "timestamp" || k == "level" || k == "service" || k == "component" || k == "message" {
			continue
		}
		entry[k] = v
	}
	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(l.output, string(data))
	}
}

func (l *StructuredLogger) logText(timestamp, level, msg string, fields map[string]interface{}) {
	var b strings.Builder
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	fmt.Fprintf(l.output, "%s [%s] [%s:%s] %s%s\n",
		timestamp, level, l.serviceName, l.componentOrDefault(), msg, b.String())
}

func (l *StructuredLogger) componentOrDefault() string {
	if l.component == "" {
		return "pipeline"
	}
	return l.component
}

func (l *StructuredLogger) shouldLog(level string) bool {
	levels := map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}
	current, ok1 := levels[l.level]
	target, ok2 := levels[level]
	if !ok1 || !ok2 {
		return true
	}
	return target >= current
}

// emitLogMetric implements layer 2: once an events sink has registered
// itself, every log line also increments a low-cardinality counter.
func (l *StructuredLogger) emitLogMetric(level string, fields map[string]interface{}) {
	if !l.metricsEnabled {
		return
	}
	registry := GetGlobalMetricsRegistry()
	if registry == nil {
		return
	}
	labels := []string{"level", level, "service", l.serviceName, "component", l.componentOrDefault()}
	if status, ok := fields["status"]; ok {
		labels = append(labels, "status", fmt.Sprintf("%v", status))
	}
	registry.Counter("pipeline.log.lines", labels...)
}

// EnableMetrics is invoked by core.SetMetricsRegistry once the events
// package has initialized its sink.
func (l *StructuredLogger) EnableMetrics() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metricsEnabled = true
}

// SetOutput redirects console output; used by tests to capture lines.
func (l *StructuredLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// SetLevel dynamically updates the minimum log level.
func (l *StructuredLogger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = strings.ToUpper(level)
	l.debug = l.level == "DEBUG"
}

// SetFormat dynamically switches between "json" and "text" output.
func (l *StructuredLogger) SetFormat(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = format
}

// rateLimiter allows one event per interval; extra Allow() calls within
// the same interval are dropped.
type rateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if now.Sub(r.last) < r.interval {
		return false
	}
	r.last = now
	return true
}

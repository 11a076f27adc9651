package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/GolferGeek/predictor-pipeline/resilience"
)

// LogSink writes every event as a structured log line. It is the
// default sink wired at the composition root so events are never
// silently dropped even when no external collector is configured.
type LogSink struct {
	logger interface {
		Info(msg string, fields map[string]interface{})
	}
}

func NewLogSink(logger interface {
	Info(msg string, fields map[string]interface{})
}) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Push(event Event) error {
	s.logger.Info("pipeline event", map[string]interface{}{
		"context":         event.Context,
		"source_app":      event.SourceApp,
		"hook_event_type": string(event.HookEventType),
		"status":          string(event.Status),
		"step":            event.Step,
		"message":         event.Message,
		"timestamp":       event.Timestamp,
	})
	return nil
}

// WebhookSink POSTs the event's JSON encoding to a fixed URL, retrying
// transient failures through the resilience layer so a flaky collector
// doesn't generate alert noise on every single dropped event.
type WebhookSink struct {
	url    string
	client *http.Client
	caller *resilience.RetryingCaller
}

// NewWebhookSink builds a sink posting to url. registry/deps follow the
// same constructor-injection pattern as every other resilience-wrapped
// caller in the pipeline.
func NewWebhookSink(url string, registry *resilience.HealthRegistry, deps resilience.Dependencies) *WebhookSink {
	config := resilience.DefaultRetryConfig()
	config.MaxRetries = 2 // events are best-effort; don't hold up the caller long
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		caller: resilience.NewRetryingCaller("observability:webhook", config, registry, deps),
	}
}

func (s *WebhookSink) Push(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return s.caller.Execute(context.Background(), "push_event", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook responded %d", resp.StatusCode)
		}
		return nil
	})
}

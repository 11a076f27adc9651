package core

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredLoggerTextFormat(t *testing.T) {
	logger := NewStructuredLogger("pipeline-test")
	logger.SetFormat("text") // ensure deterministic regardless of env
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.Info("predictor created", map[string]interface{}{"target_id": "AAPL"})

	out := buf.String()
	assert.Contains(t, out, "predictor created")
	assert.Contains(t, out, "target_id=AAPL")
	assert.Contains(t, out, "[pipeline-test:pipeline]")
}

func TestStructuredLoggerJSONFormat(t *testing.T) {
	logger := NewStructuredLogger("pipeline-test")
	logger.SetFormat("json")
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.WithComponent("pipeline/ingest").Info("article ingested", map[string]interface{}{"article_id": "a1"})

	out := buf.String()
	assert.Contains(t, out, `"component":"pipeline/ingest"`)
	assert.Contains(t, out, `"article_id":"a1"`)
}

func TestStructuredLoggerDebugGatedByLevel(t *testing.T) {
	logger := NewStructuredLogger("pipeline-test")
	logger.SetFormat("text")
	logger.SetLevel("INFO")
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.Debug("should not appear", nil)
	assert.Empty(t, buf.String())

	logger.SetLevel("DEBUG")
	logger.Debug("now visible", nil)
	assert.True(t, strings.Contains(buf.String(), "now visible"))
}

func TestStructuredLoggerErrorRateLimited(t *testing.T) {
	logger := NewStructuredLogger("pipeline-test")
	logger.SetFormat("text")
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.Error("first failure", nil)
	logger.Error("second failure immediately after", nil)

	out := buf.String()
	assert.Contains(t, out, "first failure")
	assert.NotContains(t, out, "second failure immediately after")
}

func TestWithLogFieldsMergesContextCorrelation(t *testing.T) {
	logger := NewStructuredLogger("pipeline-test")
	logger.SetFormat("text")
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	ctx := WithLogFields(context.Background(), map[string]interface{}{"target_id": "AAPL"})
	logger.InfoWithContext(ctx, "threshold evaluated", map[string]interface{}{"result": "met"})

	out := buf.String()
	assert.Contains(t, out, "target_id=AAPL")
	assert.Contains(t, out, "result=met")
}

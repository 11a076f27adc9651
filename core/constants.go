package core

import "time"

// Environment variables recognized by the pipeline's ambient stack.
const (
	// EnvLogLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR).
	EnvLogLevel = "PIPELINE_LOG_LEVEL"

	// EnvLogFormat forces "json" or "text" log output, overriding auto-detection.
	EnvLogFormat = "PIPELINE_LOG_FORMAT"

	// EnvDebug enables debug-level logging regardless of EnvLogLevel.
	EnvDebug = "PIPELINE_DEBUG"

	// EnvKubernetesMarker is checked to auto-detect an in-cluster environment;
	// when present, log output defaults to JSON for aggregation.
	EnvKubernetesMarker = "KUBERNETES_SERVICE_HOST"

	// EnvRedisURL names a Redis connection variable. cmd/pipeline does not
	// read it: it takes the Redis address from REDIS_ADDR.
	EnvRedisURL = "PIPELINE_REDIS_URL"

	// EnvDefaultLLMModel names the local fallback model the LLM gateway
	// uses when its usage limiter denies a request (see §4.2 of the tier
	// resolver design).
	EnvDefaultLLMModel = "DEFAULT_LLM_MODEL"
)

// Default horizon and bookkeeping windows shared across components.
const (
	// DefaultPredictorTTL is the fallback predictor lifetime when no
	// threshold configuration overrides it.
	DefaultPredictorTTL = 48 * time.Hour

	// HealthWindowSize bounds the sliding window of recorded call
	// outcomes used for service health classification.
	HealthWindowSize = 100
)

// Command pipeline is the composition root: it wires every component
// via explicit constructor injection and runs the poll loop that
// drives ingestion and prediction generation across the configured
// target set. There is no HTTP or CLI surface (spec.md §2 Non-goals);
// operators configure the run through PIPELINE_CONFIG_PATH and the
// environment variables each component already documents.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/GolferGeek/predictor-pipeline/analyst"
	"github.com/GolferGeek/predictor-pipeline/config"
	"github.com/GolferGeek/predictor-pipeline/core"
	"github.com/GolferGeek/predictor-pipeline/ensemble"
	"github.com/GolferGeek/predictor-pipeline/events"
	"github.com/GolferGeek/predictor-pipeline/ingest"
	"github.com/GolferGeek/predictor-pipeline/llm"
	"github.com/GolferGeek/predictor-pipeline/prediction"
	"github.com/GolferGeek/predictor-pipeline/predictorpool"
	"github.com/GolferGeek/predictor-pipeline/repo"
	"github.com/GolferGeek/predictor-pipeline/resilience"
	"github.com/GolferGeek/predictor-pipeline/snapshot"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("PIPELINE_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := core.NewStructuredLogger("predictor-pipeline")

	if os.Getenv("PIPELINE_DISABLE_METRICS") != "true" {
		metricsProvider, err := events.NewMetricsProvider("predictor-pipeline")
		if err != nil {
			logger.Warn("metrics provider unavailable, continuing without it", map[string]interface{}{"error": err.Error()})
		} else {
			core.SetMetricsRegistry(metricsProvider)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
					logger.Warn("metrics provider shutdown failed", map[string]interface{}{"error": err.Error()})
				}
			}()
		}
	}

	health := resilience.NewHealthRegistry()
	clock := core.RealClock{}

	sinks := []events.Sink{events.NewLogSink(logger)}
	if webhookURL := os.Getenv("PIPELINE_WEBHOOK_URL"); webhookURL != "" {
		sinks = append(sinks, events.NewWebhookSink(webhookURL, health, resilience.Dependencies{Logger: logger}))
	}
	bus := events.NewBus("predictor-pipeline", clock, logger, sinks...)

	repos := repo.NewInMemoryRepos()

	var lock repo.TargetLock = repo.NewInMemoryLock()
	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		lock = repo.NewRedisLock(redisClient, 30*time.Second)
	}

	providers := map[string]llm.Provider{
		"local": llm.NewLocalProvider(cfg.DefaultLLMModel),
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		bedrock, err := llm.NewBedrockProvider(ctx)
		if err != nil {
			logger.Warn("bedrock provider unavailable, falling back to local tier for every request", map[string]interface{}{"error": err.Error()})
		} else {
			providers["bedrock"] = bedrock
		}
	}

	var usageStore core.Memory = core.NewInMemoryStore()
	if redisClient != nil {
		usageStore = repo.NewRedisMemory(redisClient, "pipeline:llm-usage")
	}
	dailyBudget := envInt("PIPELINE_DAILY_TOKEN_BUDGET", 0)
	limiter := llm.NewUsageLimiter(usageStore, dailyBudget, 24*time.Hour)

	gateway := llm.NewGateway(llm.Dependencies{
		Providers: providers,
		Limiter:   limiter,
		Health:    health,
		Logger:    logger,
	})

	analystRegistry := analyst.NewRegistry(repos.AnalystRepo)

	engine := ensemble.NewEngine(ensemble.Dependencies{
		Analysts:   analystRegistry,
		Gateway:    gateway,
		UniverseID: os.Getenv("PIPELINE_UNIVERSE_ID"),
		Logger:     logger,
	})

	pool := predictorpool.NewPool(predictorpool.Dependencies{
		Predictors: repos.PredictorRepo,
		Locks:      lock,
		Events:     bus,
		Clock:      clock,
		Logger:     logger,
	})

	generator := prediction.NewGenerator(prediction.Dependencies{
		Predictions:     repos.PredictionRepo,
		Predictors:      repos.PredictorRepo,
		Pool:            pool,
		Ensemble:        engine,
		TargetSnapshots: repos.TargetSnapRepo,
		Signals:         repos.SignalRepo,
		Snapshots:       snapshot.NewWriter(repos.SnapshotRepo),
		Events:          bus,
		Clock:           clock,
		Config:          cfg.ThresholdConfig(),
		Logger:          logger,
	})

	var ingestor *ingest.Processor
	if redisClient != nil {
		ingestor = ingest.NewProcessor(ingest.Dependencies{
			Subscriptions: repo.NewRedisSubscriptionRepo(redisClient),
			Targets:       repos.TargetRepo,
			Signals:       repos.SignalRepo,
			Predictors:    repos.PredictorRepo,
			Ensemble:      engine,
			Clock:         clock,
			Logger:        logger,
		})
		_ = ingest.NewHTTPCrawlerBridge(nil, health, resilience.Dependencies{Logger: logger})
	} else {
		logger.Warn("REDIS_ADDR not set: ingestion is disabled for this run (no cross-process subscription store)", nil)
	}

	interval := envDuration("PIPELINE_POLL_INTERVAL", 5*time.Minute)
	targetIDs := splitEnvList("PIPELINE_TARGET_IDS")
	subscriptionIDs := splitEnvList("PIPELINE_SUBSCRIPTION_IDS")

	logger.Info("pipeline started", map[string]interface{}{
		"poll_interval_seconds": interval.Seconds(),
		"targets":               len(targetIDs),
		"ingestion_enabled":     ingestor != nil,
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runCycle(ctx, logger, ingestor, generator, health, targetIDs, subscriptionIDs)

	for {
		select {
		case <-ctx.Done():
			logger.Info("pipeline shutting down", nil)
			return
		case <-ticker.C:
			runCycle(ctx, logger, ingestor, generator, health, targetIDs, subscriptionIDs)
		}
	}
}

// runCycle drives one ingest+predict pass over every configured
// target: ingestion first (so freshly emitted predictors are visible
// to the same cycle's threshold evaluation), then a prediction
// generation attempt per target (spec.md §5 end-to-end flow).
func runCycle(ctx context.Context, logger core.Logger, ingestor *ingest.Processor, generator *prediction.Generator, health *resilience.HealthRegistry, targetIDs, subscriptionIDs []string) {
	if ingestor != nil {
		for _, targetID := range targetIDs {
			if _, err := ingestor.ProcessTarget(ctx, targetID, subscriptionIDs, 0); err != nil {
				logger.Warn("ingest cycle failed for target", map[string]interface{}{"target_id": targetID, "error": err.Error()})
			}
		}
	}

	for _, targetID := range targetIDs {
		pred, err := generator.AttemptPredictionGeneration(ctx, targetID, prediction.GenerationContext{})
		if err != nil {
			logger.Warn("prediction generation failed for target", map[string]interface{}{"target_id": targetID, "error": err.Error()})
			continue
		}
		if pred != nil {
			logger.Info("prediction generated", map[string]interface{}{"target_id": targetID, "prediction_id": pred.ID, "direction": string(pred.Direction)})
		}
	}

	for _, snap := range health.Snapshot() {
		if snap.Status != resilience.StatusHealthy {
			logger.Warn("service health degraded", map[string]interface{}{"service": snap.Name, "status": string(snap.Status)})
		}
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

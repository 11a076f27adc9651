package events

import (
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// counterCache and histogramCache lazily create and memoize OTel
// instruments by name. The SDK expects instruments to be created once
// and reused; components emit by name on every call, so the cache
// avoids re-registering an instrument on every metric point.
type counterCache struct {
	mu   sync.Mutex
	byName map[string]metric.Int64Counter
}

func newCounterCache() counterCache {
	return counterCache{byName: make(map[string]metric.Int64Counter)}
}

func (c *counterCache) get(meter metric.Meter, name string) (metric.Int64Counter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inst, ok := c.byName[name]; ok {
		return inst, nil
	}
	inst, err := meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	c.byName[name] = inst
	return inst, nil
}

type histogramCache struct {
	mu   sync.Mutex
	byName map[string]metric.Float64Histogram
}

func newHistogramCache() histogramCache {
	return histogramCache{byName: make(map[string]metric.Float64Histogram)}
}

func (c *histogramCache) get(meter metric.Meter, name string) (metric.Float64Histogram, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inst, ok := c.byName[name]; ok {
		return inst, nil
	}
	inst, err := meter.Float64Histogram(name)
	if err != nil {
		return nil, err
	}
	c.byName[name] = inst
	return inst, nil
}

package events

import (
	"sync"
	"time"
)

// cardinalityLimiter bounds how many distinct label values a metric may
// accumulate. Without this, a label like "target_symbol" or
// "analyst_id" would grow unbounded as new targets and analysts are
// added, eventually overwhelming whatever backend scrapes the metrics.
// Values beyond the per-label limit collapse to "other".
type cardinalityLimiter struct {
	limits map[string]int
	seen   sync.Map // "metric.label" -> *sync.Map[value]time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newCardinalityLimiter(limits map[string]int) *cardinalityLimiter {
	c := &cardinalityLimiter{limits: limits, stopCh: make(chan struct{})}
	go c.cleanupLoop()
	return c
}

func (c *cardinalityLimiter) checkAndLimit(metric, label, value string) string {
	limit, hasLimit := c.limits[label]
	if !hasLimit {
		return value
	}

	key := metric + "." + label
	valMapI, _ := c.seen.LoadOrStore(key, &sync.Map{})
	valMap := valMapI.(*sync.Map)

	if _, exists := valMap.Load(value); !exists {
		count := 0
		valMap.Range(func(_, _ interface{}) bool {
			count++
			return count < limit
		})
		if count >= limit {
			return "other"
		}
	}

	valMap.Store(value, time.Now())
	return value
}

func (c *cardinalityLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

func (c *cardinalityLimiter) cleanup() {
	cutoff := time.Now().Add(-10 * time.Minute)
	c.seen.Range(func(_, valMapI interface{}) bool {
		valMap := valMapI.(*sync.Map)
		valMap.Range(func(val, ts interface{}) bool {
			if ts.(time.Time).Before(cutoff) {
				valMap.Delete(val)
			}
			return true
		})
		return true
	})
}

func (c *cardinalityLimiter) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

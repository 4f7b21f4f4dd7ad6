package inference

import (
	"sync"
	"time"

	"github.com/khaledhikmat/df-go/model"
)

// Counters accumulate per-service inference stats
type Counters struct {
	mu        sync.Mutex
	startTime time.Time
	analyses  int64
	fallbacks int64
	procTime  time.Duration
}

func NewCounters() *Counters {
	return &Counters{
		startTime: time.Now(),
	}
}

func (c *Counters) Record(procTime time.Duration, fallback bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.analyses++
	if fallback {
		c.fallbacks++
	}
	c.procTime += procTime
}

func (c *Counters) Snapshot(name string, loaded bool) model.InferenceStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var avgProcTime float64
	if c.analyses > 0 {
		avgProcTime = c.procTime.Seconds() / float64(c.analyses)
	}

	return model.InferenceStats{
		Name:        name,
		Loaded:      loaded,
		Analyses:    c.analyses,
		Fallbacks:   c.fallbacks,
		AvgProcTime: avgProcTime,
		Uptime:      int64(time.Since(c.startTime).Seconds()),
		Timestamp:   time.Now().Unix(),
	}
}

package lalog

import (
	"sync"
	"time"
)

// RateLimit is a fixed-window counter: each key may pass at most MaxCount times per UnitSecs
// window. All keys share the same window boundary, which keeps the bookkeeping to one map that
// is dropped wholesale when the window rolls over.
type RateLimit struct {
	UnitSecs int64
	MaxCount int
	Logger   *Logger

	mutex       sync.Mutex
	windowStart int64
	counts      map[string]int
}

// NewRateLimit returns a limiter allowing maxCount hits per key per unitSecs seconds. logger
// may be nil, in which case limited keys are not reported.
func NewRateLimit(unitSecs int64, maxCount int, logger *Logger) *RateLimit {
	return &RateLimit{
		UnitSecs: unitSecs,
		MaxCount: maxCount,
		Logger:   logger,
		counts:   make(map[string]int),
	}
}

// Add counts one hit against key and reports whether the key is still within its limit. When
// the key crosses the limit and logIfLimited is true, a single warning is written for that key
// per window.
func (limit *RateLimit) Add(key string, logIfLimited bool) bool {
	now := time.Now().Unix()
	limit.mutex.Lock()
	defer limit.mutex.Unlock()
	if now-limit.windowStart >= limit.UnitSecs {
		limit.windowStart = now
		for k := range limit.counts {
			delete(limit.counts, k)
		}
	}
	limit.counts[key]++
	if limit.counts[key] > limit.MaxCount {
		if logIfLimited && limit.Logger != nil && limit.counts[key] == limit.MaxCount+1 {
			limit.Logger.Warning(key, nil, "exceeded %d hits in %d seconds, holding further requests", limit.MaxCount, limit.UnitSecs)
		}
		return false
	}
	return true
}

package queue

import (
	"strings"
	"time"

	"github.com/titone-mit/voltbridge/lalog"
)

// maxFlushBatch bounds how many rows a single flush tick drains, so one slow submit doesn't hold
// the flusher off the clock for an unbounded time.
const maxFlushBatch = 50

// Submitter is the subset of dispatch.Dispatcher the Flusher needs.
type Submitter interface {
	Submit(tokens []string) (rc int, stdout, stderr string)
}

// Flusher periodically drains not-yet-sent queue entries through a Submitter.
type Flusher struct {
	Queue    *Queue
	Submit   Submitter
	Interval time.Duration
	Logger   lalog.Logger
	Now      func() int64
}

// Run blocks, flushing on every tick, until stop is closed.
func (f *Flusher) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			f.flushOnce()
		}
	}
}

func (f *Flusher) flushOnce() {
	entries, err := f.Queue.GetUnsent(maxFlushBatch)
	if err != nil {
		f.Logger.Warning("flusher", err, "failed to read unsent queue entries")
		return
	}
	for _, e := range entries {
		tokens := strings.Fields(e.Cmd)
		rc, _, stderr := f.Submit.Submit(tokens)
		if rc != 0 {
			f.Logger.Warning("flusher", nil, "queued command %d (%q) returned rc=%d: %s", e.ID, e.Cmd, rc, stderr)
			continue
		}
		if markErr := f.Queue.MarkSent(e.ID, f.Now()); markErr != nil {
			f.Logger.Warning("flusher", markErr, "failed to mark queue entry %d sent", e.ID)
		}
	}
}

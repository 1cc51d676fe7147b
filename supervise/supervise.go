// Package supervise restarts a long-running function after it fails, backing off between
// attempts instead of spinning a daemon into a crash loop.
package supervise

import (
	"time"

	"github.com/titone-mit/voltbridge/lalog"
)

// maxDelay caps how long AutoRestart waits between restarts.
const maxDelay = 60 * time.Second

// delayStep is how much the backoff grows after each failed attempt.
const delayStep = 10 * time.Second

// AutoRestart runs fun and restarts it whenever it returns a non-nil error, waiting an
// increasing delay (capped at maxDelay) between attempts. It returns as soon as fun returns nil,
// or once stop is closed: stop is checked before each attempt and during the wait between
// attempts, not while fun is running.
func AutoRestart(logger lalog.Logger, actorName string, stop <-chan struct{}, fun func() error) {
	delay := time.Duration(0)
	for {
		select {
		case <-stop:
			logger.Info(actorName, nil, "stopping before next restart attempt")
			return
		default:
		}

		err := fun()
		if err == nil {
			logger.Info(actorName, nil, "returned successfully, no further restart needed")
			return
		}

		if delay == 0 {
			logger.Warning(actorName, err, "restarting immediately")
		} else {
			logger.Warning(actorName, err, "restarting in %s", delay)
		}

		select {
		case <-stop:
			return
		case <-time.After(delay):
		}
		if delay < maxDelay {
			delay += delayStep
		}
	}
}

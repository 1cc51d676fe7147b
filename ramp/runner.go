package ramp

import (
	"fmt"
	"strconv"
	"time"

	"github.com/titone-mit/voltbridge/lalog"
	"github.com/titone-mit/voltbridge/voltage"
)

// maxSleepSlice bounds every cancellable sleep so cancellation latency stays predictable.
const maxSleepSlice = 100 * time.Millisecond

// Device is the subset of devicetool.Invoker that a Runner needs. Kept as an interface here so
// this package never imports its caller.
type Device interface {
	Invoke(args []string, timeout time.Duration) (rc int, stdout, stderr string)
	KillActive(timeout time.Duration)
}

// Config carries the tunables a Runner needs beyond what a single ramp request specifies.
type Config struct {
	Floor           time.Duration
	Smoothing       Smoothing
	GlobalTimeout   time.Duration
	BaselineTimeout time.Duration
	MinStepTimeout  time.Duration
}

// Request describes one ramp to execute.
type Request struct {
	Bus, Address string
	Start, End   int
	DurationMs   int64
	OffsetMs     int64
}

// Run executes a planned ramp to completion or until cancel is closed. It never returns an error:
// every invocation failure is logged and the ramp continues, because a ramp is best-effort
// shaping and aborting on one transient failure would leave the device stuck mid-ramp.
func Run(req Request, cfg Config, dev Device, vs *voltage.State, cancel <-chan struct{}, logger lalog.Logger) {
	start := req.Start
	if start == -1 {
		start = vs.GetOrDefault(0)
		logger.Info(req.Bus, nil, "resolved relative ramp start to %d", start)
	}

	if !sleepCancellable(time.Duration(req.OffsetMs)*time.Millisecond, cancel) {
		logger.Info(req.Bus, nil, "ramp cancelled during offset wait")
		return
	}

	args := func(v int) []string { return []string{req.Bus, req.Address, strconv.Itoa(v)} }

	if start == req.End {
		dev.KillActive(100 * time.Millisecond)
		rc, _, stderr := dev.Invoke(args(req.End), cfg.GlobalTimeout)
		if rc == 0 {
			vs.Set(req.End)
		} else {
			logger.Warning(req.Bus, fmt.Errorf("rc=%d", rc), "no-op ramp set failed: %s", stderr)
		}
		return
	}

	plan := Plan(start, req.End, req.DurationMs, cfg.Floor, cfg.Smoothing)

	dev.KillActive(100 * time.Millisecond)
	baselineTimeout := cfg.BaselineTimeout
	if baselineTimeout > 5*time.Second {
		baselineTimeout = 5 * time.Second
	}
	if rc, _, stderr := dev.Invoke(args(plan.Sequence[0]), baselineTimeout); rc == 0 {
		vs.Set(plan.Sequence[0])
	} else {
		logger.Warning(req.Bus, fmt.Errorf("rc=%d", rc), "ramp baseline set failed: %s", stderr)
	}

	stepTimeout := 2 * plan.Interval
	if stepTimeout < cfg.MinStepTimeout {
		stepTimeout = cfg.MinStepTimeout
	}
	if stepTimeout > cfg.GlobalTimeout {
		stepTimeout = cfg.GlobalTimeout
	}

	for _, v := range plan.Sequence[1:] {
		select {
		case <-cancel:
			dev.KillActive(100 * time.Millisecond)
			return
		default:
		}
		if rc, _, stderr := dev.Invoke(args(v), stepTimeout); rc == 0 {
			vs.Set(v)
		} else {
			logger.Warning(req.Bus, fmt.Errorf("rc=%d", rc), "ramp step to %d failed: %s", v, stderr)
		}
		if !sleepCancellable(plan.Interval, cancel) {
			dev.KillActive(100 * time.Millisecond)
			return
		}
	}

	last := plan.Sequence[len(plan.Sequence)-1]
	if last != req.End {
		dev.KillActive(100 * time.Millisecond)
		if rc, _, _ := dev.Invoke(args(req.End), cfg.GlobalTimeout); rc == 0 {
			vs.Set(req.End)
		}
	}
}

// sleepCancellable sleeps for d in slices no longer than maxSleepSlice, returning false as soon
// as cancel fires.
func sleepCancellable(d time.Duration, cancel <-chan struct{}) bool {
	for remaining := d; remaining > 0; {
		slice := remaining
		if slice > maxSleepSlice {
			slice = maxSleepSlice
		}
		select {
		case <-cancel:
			return false
		case <-time.After(slice):
		}
		remaining -= slice
	}
	select {
	case <-cancel:
		return false
	default:
		return true
	}
}

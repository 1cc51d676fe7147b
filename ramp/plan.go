// Package ramp plans and executes timed voltage ramps between two integer set-points.
package ramp

import (
	"math"
	"time"
)

// Smoothing selects the easing curve used to shape a ramp's intermediate voltages.
type Smoothing string

const (
	Linear Smoothing = "linear"
	Cosine Smoothing = "cosine"
)

// PlanResult is the result of planning a ramp: the sequence of voltages to set in order, and the
// interval to wait between each set.
type PlanResult struct {
	Sequence []int
	Interval time.Duration
}

func ease(smoothing Smoothing, t float64) float64 {
	if smoothing == Cosine {
		return (1 - math.Cos(math.Pi*t)) / 2
	}
	return t
}

// collapseAndForceEndpoints removes consecutive duplicate samples and makes sure the first and
// last elements are exactly start and end, inserting them back if rounding dropped them.
func collapseAndForceEndpoints(seq []int, start, end int) []int {
	collapsed := make([]int, 0, len(seq))
	for _, v := range seq {
		if len(collapsed) == 0 || collapsed[len(collapsed)-1] != v {
			collapsed = append(collapsed, v)
		}
	}
	if len(collapsed) == 0 {
		return []int{start, end}
	}
	if collapsed[0] != start {
		collapsed = append([]int{start}, collapsed...)
	}
	if collapsed[len(collapsed)-1] != end {
		collapsed = append(collapsed, end)
	}
	return collapsed
}

func downsample(seq []int, maxIntervals int) []int {
	n := maxIntervals + 1
	if len(seq) <= n || n < 2 {
		if n < 2 {
			return []int{seq[0], seq[len(seq)-1]}
		}
		return seq
	}
	out := make([]int, n)
	last := len(seq) - 1
	for j := 0; j < n; j++ {
		idx := int(math.Round(float64(j) * float64(last) / float64(n-1)))
		out[j] = seq[idx]
	}
	return out
}

// Plan computes the sequence of voltages and per-step interval for a ramp from start to end
// over durationMs milliseconds, honoring floor (a minimum inter-step duration) and the given
// easing curve. Plan never touches the wall clock or any global state.
func Plan(start, end int, durationMs int64, floor time.Duration, smoothing Smoothing) (p PlanResult) {
	if start == end {
		return PlanResult{Sequence: []int{end}, Interval: 0}
	}
	steps := end - start
	if steps < 0 {
		steps = -steps
	}
	samples := make([]int, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		samples[i] = int(math.Round(float64(start) + float64(end-start)*ease(smoothing, t)))
	}
	seq := collapseAndForceEndpoints(samples, start, end)

	durationSec := float64(durationMs) / 1000
	floorSec := floor.Seconds()
	maxIntervals := 1
	if floorSec > 0 {
		if m := int(math.Floor(durationSec / floorSec)); m > maxIntervals {
			maxIntervals = m
		}
	}
	if len(seq) > maxIntervals+1 {
		seq = downsample(seq, maxIntervals)
		seq = collapseAndForceEndpoints(seq, start, end)
	}

	intervals := len(seq) - 1
	if intervals < 1 {
		intervals = 1
	}
	var interval time.Duration
	if durationMs > 0 {
		// Ceil so interval*intervals never lands below the requested duration.
		interval = time.Duration(math.Ceil(durationSec / float64(intervals) * float64(time.Second)))
		if interval < floor {
			// Pathological rounding: running longer than requested beats hammering the device.
			interval = floor
		}
	}
	return PlanResult{Sequence: seq, Interval: interval}
}

package ramp

import (
	"testing"
	"time"
)

func TestPlanNoOpWhenStartEqualsEnd(t *testing.T) {
	p := Plan(100, 100, 5000, 80*time.Millisecond, Linear)
	if len(p.Sequence) != 1 || p.Sequence[0] != 100 {
		t.Fatalf("expected single-element sequence [100], got %v", p.Sequence)
	}
	if p.Interval != 0 {
		t.Fatalf("expected zero interval for no-op plan, got %v", p.Interval)
	}
}

func TestPlanEndpoints(t *testing.T) {
	cases := []struct {
		start, end int
		durationMs int64
	}{
		{0, 1500, 10000},
		{1500, 0, 10000},
		{-500, 500, 200},
		{100, 100, 0},
	}
	for _, c := range cases {
		for _, sm := range []Smoothing{Linear, Cosine} {
			p := Plan(c.start, c.end, c.durationMs, 80*time.Millisecond, sm)
			if p.Sequence[0] != c.start {
				t.Fatalf("%+v %s: first sample %d != start %d", c, sm, p.Sequence[0], c.start)
			}
			if p.Sequence[len(p.Sequence)-1] != c.end {
				t.Fatalf("%+v %s: last sample %d != end %d", c, sm, p.Sequence[len(p.Sequence)-1], c.end)
			}
		}
	}
}

func TestPlanFloorRespected(t *testing.T) {
	floor := 80 * time.Millisecond
	p := Plan(100, 200, 200, floor, Linear)
	if len(p.Sequence) > 1 && p.Interval < floor {
		t.Fatalf("interval %v below floor %v", p.Interval, floor)
	}
}

func TestPlanDurationTarget(t *testing.T) {
	durationMs := int64(10000)
	floor := 80 * time.Millisecond
	p := Plan(0, 1500, durationMs, floor, Linear)
	intervals := len(p.Sequence) - 1
	total := time.Duration(intervals) * p.Interval
	target := time.Duration(durationMs) * time.Millisecond
	if total < target || total >= target*2 {
		t.Fatalf("total %v not within [%v, %v)", total, target, target*2)
	}
}

func TestPlanMonotoneSamples(t *testing.T) {
	for _, sm := range []Smoothing{Linear, Cosine} {
		p := Plan(0, 1500, 10000, 80*time.Millisecond, sm)
		for i := 1; i < len(p.Sequence); i++ {
			if p.Sequence[i] < p.Sequence[i-1] {
				t.Fatalf("%s: sample regressed at index %d: %v", sm, i, p.Sequence)
			}
		}
		p = Plan(1500, 0, 10000, 80*time.Millisecond, sm)
		for i := 1; i < len(p.Sequence); i++ {
			if p.Sequence[i] > p.Sequence[i-1] {
				t.Fatalf("%s: descending sample increased at index %d: %v", sm, i, p.Sequence)
			}
		}
	}
}

func TestPlanDeterministic(t *testing.T) {
	a := Plan(0, 1500, 10000, 80*time.Millisecond, Cosine)
	b := Plan(0, 1500, 10000, 80*time.Millisecond, Cosine)
	if len(a.Sequence) != len(b.Sequence) || a.Interval != b.Interval {
		t.Fatal("Plan must be deterministic for identical inputs")
	}
	for i := range a.Sequence {
		if a.Sequence[i] != b.Sequence[i] {
			t.Fatalf("sample %d differs: %d vs %d", i, a.Sequence[i], b.Sequence[i])
		}
	}
}

func TestPlanWithFloorSmallDuration(t *testing.T) {
	p := Plan(100, 200, 200, 80*time.Millisecond, Linear)
	if len(p.Sequence) > 3 {
		t.Fatalf("expected at most intervals=2 (sequence len <= 3) under a tight floor, got %v", p.Sequence)
	}
}

// Package dispatch implements the single-writer scheduler that arbitrates between instant
// voltage sets and ramps, preempting any in-flight work the moment a new command arrives.
package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/titone-mit/voltbridge/lalog"
	"github.com/titone-mit/voltbridge/ramp"
	"github.com/titone-mit/voltbridge/voltage"
)

// Overloaded return codes, preserved verbatim on the wire for compatibility with existing
// clients; the refined, non-overloaded kind is recorded in structured logs instead.
const (
	RCSuccess               = 0
	RCBadShapeOrToolMissing = 252
	RCTimeoutOrBadPrefix    = 253
	RCParseOrSpawnFailed    = 254
)

var (
	ErrBadShape  = errors.New("expected 3 tokens (bus address voltage) or 4 (bus address endVoltage durationMs)")
	ErrBadPrefix = errors.New("bus must be \"com3\" and address must be \"1\"")
	ErrParse     = errors.New("voltage/duration tokens must parse as integers, duration must be non-negative")
)

// Device is the subset of devicetool.Invoker the Dispatcher and the ramps it spawns need.
type Device interface {
	Invoke(args []string, timeout time.Duration) (rc int, stdout, stderr string)
	KillActive(timeout time.Duration)
}

// Config carries every tunable the Dispatcher and its ramps need.
type Config struct {
	SubprocessTimeout time.Duration
	RampFloor         time.Duration
	RampSmoothing     ramp.Smoothing
}

type session struct {
	cancel chan struct{}
	done   chan struct{}
}

// Dispatcher is the single entry point for submitting voltage-control commands. The preemption
// barriers of overlapping Submit calls run one at a time under a single mutex; the device
// invocation or ramp launch that follows happens outside it, and the Device itself runs at most
// one invocation at a time.
type Dispatcher struct {
	device  Device
	voltage *voltage.State
	cfg     Config
	logger  lalog.Logger
	metrics *metrics

	mutex   sync.Mutex
	running *session
}

// New returns a Dispatcher ready to serve Submit calls.
func New(device Device, vs *voltage.State, cfg Config, logger lalog.Logger) *Dispatcher {
	m := newMetrics()
	return &Dispatcher{device: timedDevice{Device: device, metrics: m}, voltage: vs, cfg: cfg, logger: logger, metrics: m}
}

// timedDevice measures every invocation, including the ones a background ramp makes.
type timedDevice struct {
	Device
	metrics *metrics
}

func (t timedDevice) Invoke(args []string, timeout time.Duration) (rc int, stdout, stderr string) {
	started := time.Now()
	rc, stdout, stderr = t.Device.Invoke(args, timeout)
	t.metrics.observeInvocation(time.Since(started).Seconds())
	return rc, stdout, stderr
}

// Submit validates tokens, preempts any running ramp and in-flight invocation, and then either
// runs an instant set synchronously or starts a ramp in the background.
func (d *Dispatcher) Submit(tokens []string) (rc int, stdout, stderr string) {
	d.mutex.Lock()
	d.preemptLocked()
	d.mutex.Unlock()

	if len(tokens) != 3 && len(tokens) != 4 {
		d.metrics.observeSubmit("rejected", RCBadShapeOrToolMissing)
		return RCBadShapeOrToolMissing, "", ErrBadShape.Error()
	}
	if !strings.EqualFold(tokens[0], "com3") || tokens[1] != "1" {
		d.metrics.observeSubmit("rejected", RCTimeoutOrBadPrefix)
		return RCTimeoutOrBadPrefix, "", ErrBadPrefix.Error()
	}

	if len(tokens) == 3 {
		return d.submitInstant(tokens)
	}
	return d.submitRamp(tokens)
}

func (d *Dispatcher) submitInstant(tokens []string) (int, string, string) {
	if _, err := strconv.Atoi(tokens[2]); err != nil {
		d.metrics.observeSubmit("instant", RCParseOrSpawnFailed)
		return RCParseOrSpawnFailed, "", ErrParse.Error()
	}
	rc, stdout, stderr := d.device.Invoke([]string{tokens[0], tokens[1], tokens[2]}, d.cfg.SubprocessTimeout)
	d.metrics.observeSubmit("instant", rc)
	return rc, stdout, stderr
}

func (d *Dispatcher) submitRamp(tokens []string) (int, string, string) {
	endVoltage, errV := strconv.Atoi(tokens[2])
	durationMs, errD := strconv.ParseInt(tokens[3], 10, 64)
	if errV != nil || errD != nil || durationMs < 0 {
		d.metrics.observeSubmit("ramp", RCParseOrSpawnFailed)
		return RCParseOrSpawnFailed, "", ErrParse.Error()
	}

	sess := &session{cancel: make(chan struct{}), done: make(chan struct{})}
	d.mutex.Lock()
	d.running = sess
	d.mutex.Unlock()

	req := ramp.Request{Bus: tokens[0], Address: tokens[1], Start: -1, End: endVoltage, DurationMs: durationMs}
	go func() {
		defer close(sess.done)
		ramp.Run(req, d.rampConfig(), d.device, d.voltage, sess.cancel, d.logger)
	}()

	d.metrics.observeSubmit("ramp", RCSuccess)
	return RCSuccess, fmt.Sprintf("ramp started -1->%d dur=%dms offset=0", endVoltage, durationMs), ""
}

func (d *Dispatcher) rampConfig() ramp.Config {
	return ramp.Config{
		Floor:           d.cfg.RampFloor,
		Smoothing:       d.cfg.RampSmoothing,
		GlobalTimeout:   d.cfg.SubprocessTimeout,
		BaselineTimeout: d.cfg.SubprocessTimeout,
		MinStepTimeout:  10 * time.Second,
	}
}

// Shutdown cancels any running ramp and kills the active device child. Called once when the
// process is draining.
func (d *Dispatcher) Shutdown() {
	d.mutex.Lock()
	d.preemptLocked()
	d.mutex.Unlock()
}

// preemptLocked cancels and kills any running ramp, then makes sure no straggling child remains.
// Callers must hold d.mutex.
func (d *Dispatcher) preemptLocked() {
	if d.running != nil {
		sess := d.running
		select {
		case <-sess.cancel:
		default:
			close(sess.cancel)
		}
		d.metrics.observePreemption()
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			d.device.KillActive(200 * time.Millisecond)
			select {
			case <-sess.done:
				goto settled
			case <-time.After(50 * time.Millisecond):
			}
		}
	settled:
		d.running = nil
	}
	d.device.KillActive(100 * time.Millisecond)
}

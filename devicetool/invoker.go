// Package devicetool starts the vendor device-tool executable, one invocation at a time, and
// publishes a handle to the running child so that it can be killed from another goroutine.
package devicetool

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/titone-mit/voltbridge/lalog"
	"github.com/titone-mit/voltbridge/platform"
	"github.com/titone-mit/voltbridge/voltage"
)

// Return codes surfaced by the invoker itself, independent of the device tool's own exit code.
const (
	RCSuccess     = 0
	RCToolMissing = 252
	RCTimeout     = 253
	RCSpawnFailed = 254
)

// drainGrace is how much additional time is given to a killed child to flush its output pipes
// after it has been signalled, on top of the caller's own timeout.
const drainGrace = 2 * time.Second

// voltEcho matches a voltage the device tool echoes back on stdout or stderr, e.g. "volt=1500".
var voltEcho = regexp.MustCompile(`(?i)volt[:=]?(-?\d+)`)

// ErrToolUnresolved reports that the configured device tool path does not point at an existing
// executable yet. The server keeps serving while this is the case, so that installing the tool
// heals it without a restart.
var ErrToolUnresolved = errors.New("device tool is not resolvable")

// Invoker starts at most one device-tool subprocess at a time. runMutex is held for the entire
// duration of an Invoke call, so even callers that race each other can never have two children
// alive at once; KillActive deliberately takes only the handle mutex so it can interrupt an
// Invoke in progress.
type Invoker struct {
	ToolPath string
	Voltage  *voltage.State
	Logger   lalog.Logger

	runMutex sync.Mutex
	mutex    sync.Mutex
	active   *os.Process
}

// NewInvoker returns an Invoker for the device tool at toolPath, recording requested and echoed
// voltages in vs.
func NewInvoker(toolPath string, vs *voltage.State) *Invoker {
	return &Invoker{
		ToolPath: toolPath,
		Voltage:  vs,
		Logger:   lalog.Logger{ComponentName: "devicetool", ComponentID: []lalog.LoggerIDField{{Key: "PID", Value: os.Getpid()}}},
	}
}

// Invoke runs the device tool with args and waits up to timeout for it to finish.
func (inv *Invoker) Invoke(args []string, timeout time.Duration) (rc int, stdout, stderr string) {
	inv.runMutex.Lock()
	defer inv.runMutex.Unlock()

	if inv.ToolPath == "" {
		return RCToolMissing, "", ErrToolUnresolved.Error() + ": path is not configured"
	}
	absTool, err := filepath.Abs(inv.ToolPath)
	if err != nil {
		return RCToolMissing, "", ErrToolUnresolved.Error() + ": " + err.Error()
	}
	if _, statErr := os.Stat(absTool); statErr != nil {
		return RCToolMissing, "", ErrToolUnresolved.Error() + ": " + statErr.Error()
	}

	// Optimistic pre-update: an instant set is usually honored, so keep VoltageState fresh even
	// if the tool produces no parseable confirmation.
	if len(args) >= 3 {
		if preVoltage, parseErr := strconv.Atoi(args[2]); parseErr == nil {
			inv.Voltage.Set(preVoltage)
		}
	}

	outBuf := lalog.NewByteLogWriter(io.Discard, platform.MaxExternalProgramOutputBytes)
	cmd := exec.Command(absTool, args...)
	cmd.Dir = filepath.Dir(absTool)
	cmd.Env = append(os.Environ(), "PATH="+platform.CommonPATH)
	cmd.Stdout = outBuf
	cmd.Stderr = outBuf
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if startErr := cmd.Start(); startErr != nil {
		inv.Logger.Warning(absTool, startErr, "failed to start device tool")
		return RCSpawnFailed, "", startErr.Error()
	}

	inv.mutex.Lock()
	inv.active = cmd.Process
	inv.mutex.Unlock()
	defer func() {
		inv.mutex.Lock()
		inv.active = nil
		inv.mutex.Unlock()
	}()

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	select {
	case waitErr := <-waitDone:
		out := string(outBuf.Retrieve())
		inv.absorbVoltageEcho(out)
		if waitErr == nil {
			return RCSuccess, out, ""
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return exitErr.ExitCode(), out, ""
		}
		return RCSpawnFailed, out, waitErr.Error()
	case <-time.After(timeout):
		inv.Logger.Warning(absTool, nil, "device tool timed out after %s, killing it", timeout)
		platform.KillProcess(cmd.Process)
		select {
		case <-waitDone:
		case <-time.After(drainGrace):
		}
		return RCTimeout, string(outBuf.Retrieve()), "timed out after " + timeout.String()
	}
}

// absorbVoltageEcho scans combined stdout+stderr for the first "volt<sep>N" occurrence and, if
// found, commits N to VoltageState. This runs whenever the child was waited successfully,
// regardless of its exit code.
func (inv *Invoker) absorbVoltageEcho(combinedOutput string) {
	m := voltEcho.FindStringSubmatch(combinedOutput)
	if m == nil {
		return
	}
	if v, convErr := strconv.Atoi(m[1]); convErr == nil {
		inv.Voltage.Set(v)
	}
}

// KillActive best-effort terminates any currently running device-tool child: it sends SIGTERM to
// the child's process group, waits up to timeout, and escalates to SIGKILL if the handle is still
// published. It never reaps the child itself — that is always done by the goroutine an in-flight
// Invoke call started — so it is safe to call concurrently with an Invoke in progress.
func (inv *Invoker) KillActive(timeout time.Duration) {
	inv.mutex.Lock()
	proc := inv.active
	inv.mutex.Unlock()
	if proc == nil {
		return
	}
	_ = syscall.Kill(-proc.Pid, syscall.SIGTERM)
	_ = syscall.Kill(proc.Pid, syscall.SIGTERM)
	if timeout > 0 {
		time.Sleep(timeout)
	}
	inv.mutex.Lock()
	stillActive := inv.active == proc
	inv.mutex.Unlock()
	if stillActive {
		_ = syscall.Kill(-proc.Pid, syscall.SIGKILL)
		_ = syscall.Kill(proc.Pid, syscall.SIGKILL)
	}
}

//go:build darwin || linux

package platform

import (
	"os"
	"syscall"
	"time"
)

// KillProcess terminates the process and its process group, giving them a second to clean up
// before escalating to SIGKILL. It never reaps the child; reaping is left to whoever started it,
// so this is safe to call while another goroutine is blocked in Wait on the same process.
func KillProcess(proc *os.Process) (success bool) {
	if proc == nil {
		return true
	}
	// Send SIGTERM to the process group (if any) and the process itself
	if killErr := syscall.Kill(-proc.Pid, syscall.SIGTERM); killErr == nil {
		success = true
	}
	if killErr := syscall.Kill(proc.Pid, syscall.SIGTERM); killErr == nil {
		success = true
	}
	// Wait a moment for the process to clean up after itself, then force their termination.
	time.Sleep(1 * time.Second)
	if killErr := syscall.Kill(-proc.Pid, syscall.SIGKILL); killErr == nil {
		success = true
	}
	if killErr := syscall.Kill(proc.Pid, syscall.SIGKILL); killErr == nil {
		success = true
	}
	// Use the built-in kill implementation as the last resort
	if proc.Kill() == nil {
		success = true
	}
	return
}

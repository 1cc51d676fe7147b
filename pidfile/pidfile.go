// Package pidfile writes and removes the process's PID file and an accompanying ".meta"
// sidecar, the way a long-lived daemon announces where it is running to process supervisors
// and operators.
package pidfile

import (
	"fmt"
	"os"
)

// File represents the PID file at Path and its ".meta" sidecar.
type File struct {
	Path string
}

// New returns a File for path.
func New(path string) *File {
	return &File{Path: path}
}

// Write records the current process's PID at f.Path and a human-readable sidecar at
// f.Path+".meta" containing the PID, a start timestamp, the working directory and the
// executable path. A failure to write the sidecar is non-fatal; the PID file itself is what
// process supervisors actually rely on.
func (f *File) Write(nowUnix int64) error {
	if err := os.WriteFile(f.Path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("pidfile: write %s: %w", f.Path, err)
	}

	cwd, _ := os.Getwd()
	exe, _ := os.Executable()
	meta := fmt.Sprintf("pid=%d ts=%d cwd=%s exe=%s\n", os.Getpid(), nowUnix, cwd, exe)
	_ = os.WriteFile(f.Path+".meta", []byte(meta), 0644)
	return nil
}

// Remove deletes the PID file and its sidecar. When graceful is false the PID file is left in
// place on purpose, to help an operator diagnose what was running at the time of an unclean
// exit.
func (f *File) Remove(graceful bool) error {
	if !graceful {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pidfile: remove %s: %w", f.Path, err)
	}
	_ = os.Remove(f.Path + ".meta")
	return nil
}

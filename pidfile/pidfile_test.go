package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteCreatesPidFileAndMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voltbridge.pid")
	f := New(path)
	if err := f.Write(1234567890); err != nil {
		t.Fatalf("Write: %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile pid: %v", err)
	}
	if string(body) != fmt.Sprintf("%d", os.Getpid()) {
		t.Fatalf("unexpected pid file content: %q", body)
	}
	if _, err := os.Stat(path + ".meta"); err != nil {
		t.Fatalf("expected .meta sidecar to exist: %v", err)
	}
}

func TestRemoveGracefulDeletesBothFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voltbridge.pid")
	f := New(path)
	f.Write(1)
	if err := f.Remove(true); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected pid file to be removed")
	}
	if _, err := os.Stat(path + ".meta"); !os.IsNotExist(err) {
		t.Fatal("expected meta sidecar to be removed")
	}
}

func TestRemoveNonGracefulLeavesFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voltbridge.pid")
	f := New(path)
	f.Write(1)
	if err := f.Remove(false); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("expected pid file to remain after a non-graceful exit")
	}
}

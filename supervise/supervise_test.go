package supervise

import (
	"errors"
	"testing"
	"time"

	"github.com/titone-mit/voltbridge/lalog"
)

func TestAutoRestartReturnsOnSuccess(t *testing.T) {
	calls := 0
	AutoRestart(lalog.Logger{}, "test", make(chan struct{}), func() error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Fatalf("expected exactly one call when fun succeeds immediately, got %d", calls)
	}
}

func TestAutoRestartRetriesOnError(t *testing.T) {
	calls := 0
	AutoRestart(lalog.Logger{}, "test", make(chan struct{}), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient failure")
		}
		return nil
	})
	if calls != 3 {
		t.Fatalf("expected 3 calls before success, got %d", calls)
	}
}

func TestAutoRestartStopsOnSignal(t *testing.T) {
	stop := make(chan struct{})
	calls := 0
	done := make(chan struct{})
	go func() {
		AutoRestart(lalog.Logger{}, "test", stop, func() error {
			calls++
			return errors.New("always fails")
		})
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected AutoRestart to return promptly after stop is closed")
	}
	if calls == 0 {
		t.Fatal("expected at least one attempt before stopping")
	}
}

package lalog

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatBareLogger(t *testing.T) {
	var logger Logger
	if got := logger.Format(nil, nil, "hello %d", 7); got != ": hello 7" {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestFormatFullIdentity(t *testing.T) {
	logger := Logger{
		ComponentName: "tcpfrontend",
		ComponentID:   []LoggerIDField{{Key: "PID", Value: 42}, {Key: "addr", Value: "0.0.0.0:4998"}},
	}
	got := logger.Format("handleConnection", errors.New("boom"), "dropping client %s", "10.0.0.9")
	want := `tcpfrontend[PID=42;addr=0.0.0.0:4998](handleConnection): error "boom" - dropping client 10.0.0.9`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatOmitsEmptyActor(t *testing.T) {
	logger := Logger{ComponentName: "queue"}
	if got := logger.Format("", nil, "tick"); got != "queue: tick" {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestFormatBoundsLineLength(t *testing.T) {
	var logger Logger
	got := logger.Format(nil, nil, "%s", strings.Repeat("x", MaxLogMessageLen*2))
	if len(got) > MaxLogMessageLen {
		t.Fatalf("line length %d exceeds bound %d", len(got), MaxLogMessageLen)
	}
}

func TestWarningIsRecorded(t *testing.T) {
	logger := Logger{ComponentName: "devicetool"}
	logger.Warning("Invoke", nil, "tool vanished mid-test %d", 12345)
	found := false
	for _, line := range RecentWarnings() {
		if strings.Contains(line, "tool vanished mid-test 12345") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the warning to appear in RecentWarnings")
	}
}

func TestRecentWarningsBounded(t *testing.T) {
	logger := Logger{ComponentName: "devicetool"}
	for i := 0; i < numRecentWarnings*2; i++ {
		logger.Warning("flood", nil, "warning number %d", i)
	}
	if n := len(RecentWarnings()); n != numRecentWarnings {
		t.Fatalf("expected history capped at %d, got %d", numRecentWarnings, n)
	}
}

func TestTruncateString(t *testing.T) {
	if s := TruncateString("", -1); s != "" {
		t.Fatal(s)
	}
	if s := TruncateString("a", 0); s != "" {
		t.Fatal(s)
	}
	if s := TruncateString("aa", 1); s != "a" {
		t.Fatal(s)
	}
	if s := TruncateString("aa", 2); s != "aa" {
		t.Fatal(s)
	}
	if s := TruncateString("aa", 3); s != "aa" {
		t.Fatal(s)
	}
	long := strings.Repeat("h", 50) + strings.Repeat("t", 50)
	got := TruncateString(long, 20)
	if len(got) != 20 {
		t.Fatalf("expected 20 bytes, got %d (%q)", len(got), got)
	}
	if !strings.HasPrefix(got, "hhh") || !strings.HasSuffix(got, "ttt") || !strings.Contains(got, "...") {
		t.Fatalf("expected head and tail preserved around a marker, got %q", got)
	}
}

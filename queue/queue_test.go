package queue

import (
	"path/filepath"
	"testing"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func TestEnqueueThenGetUnsent(t *testing.T) {
	q := openTestQueue(t)
	id, err := q.Enqueue("com3 1 500", 1000)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	entries, err := q.GetUnsent(10)
	if err != nil {
		t.Fatalf("GetUnsent: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || entries[0].Cmd != "com3 1 500" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestMarkSentExcludesFromUnsent(t *testing.T) {
	q := openTestQueue(t)
	id, _ := q.Enqueue("com3 1 500", 1000)
	if err := q.MarkSent(id, 2000); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	entries, err := q.GetUnsent(10)
	if err != nil {
		t.Fatalf("GetUnsent: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no unsent entries after MarkSent, got %d", len(entries))
	}
}

func TestGetUnsentOrdersOldestFirstAndRespectsLimit(t *testing.T) {
	q := openTestQueue(t)
	first, _ := q.Enqueue("com3 1 1", 1000)
	q.Enqueue("com3 1 2", 1001)
	q.Enqueue("com3 1 3", 1002)

	entries, err := q.GetUnsent(1)
	if err != nil {
		t.Fatalf("GetUnsent: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != first {
		t.Fatalf("expected oldest entry first, got %+v", entries)
	}
}

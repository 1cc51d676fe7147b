package lalog

import (
	"io"
	"sync"
)

// ByteLogWriter forwards every write to an underlying writer while retaining only the most
// recent maxBytes bytes in memory, so a device tool that prints megabytes cannot pin an
// unbounded transcript.
type ByteLogWriter struct {
	destination io.Writer
	maxBytes    int

	mutex sync.Mutex
	kept  []byte
}

// NewByteLogWriter returns a writer that forwards to destination and keeps the last maxBytes
// bytes for later retrieval.
func NewByteLogWriter(destination io.Writer, maxBytes int) *ByteLogWriter {
	return &ByteLogWriter{destination: destination, maxBytes: maxBytes}
}

// Write implements io.Writer. It never reports failure: a broken underlying writer must not be
// able to break the subprocess whose output is being captured.
func (writer *ByteLogWriter) Write(p []byte) (int, error) {
	_, _ = writer.destination.Write(p)
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	if len(p) >= writer.maxBytes {
		writer.kept = append(writer.kept[:0], p[len(p)-writer.maxBytes:]...)
		return len(p), nil
	}
	writer.kept = append(writer.kept, p...)
	if excess := len(writer.kept) - writer.maxBytes; excess > 0 {
		copy(writer.kept, writer.kept[excess:])
		writer.kept = writer.kept[:writer.maxBytes]
	}
	return len(p), nil
}

// Retrieve returns a copy of the retained bytes in write order.
func (writer *ByteLogWriter) Retrieve() []byte {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	return append([]byte(nil), writer.kept...)
}

// Package latencylog writes and analyzes per-request latency logs made of
// "<METHOD> <milliseconds>" lines.
package latencylog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Create when another process holds the log.
var ErrLocked = errors.New("latency log is locked by another process")

// Writer appends latency lines to a file. It is safe for concurrent use and
// holds an exclusive advisory lock on "<path>.lock" until Close.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	lock *flock.Flock
	err  error
}

// Create opens path for appending, creating it when needed.
func Create(path string) (*Writer, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock latency log: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("open latency log: %w", err)
	}
	return &Writer{
		file: f,
		buf:  bufio.NewWriterSize(f, 64*1024),
		lock: lock,
	}, nil
}

// Record appends one line. The first write error is kept and returned by Close.
func (w *Writer) Record(method string, elapsed time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil || w.buf == nil {
		return
	}
	if _, err := fmt.Fprintf(w.buf, "%s %d\n", method, elapsed.Milliseconds()); err != nil {
		w.err = err
	}
}

// Close flushes buffered lines, closes the file and releases the lock.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf == nil {
		return w.err
	}
	err := w.err
	if ferr := w.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	if uerr := w.lock.Unlock(); err == nil {
		err = uerr
	}
	w.buf = nil
	return err
}

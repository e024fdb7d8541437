package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// DefaultMaxSize caps the log file before rotation.
const DefaultMaxSize = 2 * 1024 * 1024 // 2MB

// RotatingWriter appends to a log file and swaps it for a fresh one once
// it exceeds the size cap, keeping a single .1 backup.
type RotatingWriter struct {
	mu   sync.Mutex
	file *os.File
	path string
	size int64
	cap  int64
}

// Setup routes the standard logger to both stdout and a rotating file at
// logPath with the default size cap.
func Setup(logPath string) (*RotatingWriter, error) {
	rw, err := NewRotatingWriter(logPath, DefaultMaxSize)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rw))
	return rw, nil
}

// NewRotatingWriter opens (or creates) the log file at path. A file
// already over the cap is rotated away immediately.
func NewRotatingWriter(path string, maxSize int64) (*RotatingWriter, error) {
	rw := &RotatingWriter{path: path, cap: maxSize}

	if info, err := os.Stat(path); err == nil && info.Size() > maxSize {
		os.Rename(path, path+".1")
	}
	if err := rw.open(); err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return rw, nil
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	if info, err := f.Stat(); err == nil {
		w.size = info.Size()
	}
	return nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	w.size += int64(n)
	if w.size > w.cap {
		w.rotate()
	}
	return n, err
}

func (w *RotatingWriter) rotate() {
	w.file.Close()
	os.Rename(w.path, w.path+".1")
	w.open()
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

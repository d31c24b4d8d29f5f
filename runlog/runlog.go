// Package runlog keeps the human-readable log of the current run in a local
// file. The file is shipped to the log collector after each device cycle and
// truncated once shipping succeeded.
package runlog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const DefaultFile = "attendance_logs.log"

// MaxText bounds the text shipped per cycle when shipping keeps failing and
// the file grows.
const MaxText = 256 << 10

type RunLog struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// Open appends to path, creating it when missing.
func Open(path string) (*RunLog, error) {
	if path == "" {
		path = DefaultFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	return &RunLog{path: path, file: f}, nil
}

func (l *RunLog) Path() string {
	return l.path
}

func (l *RunLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return 0, os.ErrClosed
	}
	return l.file.Write(p)
}

// Text returns what was logged since the last truncation. When that exceeds
// MaxText only the newest lines are returned, starting at a line boundary.
func (l *RunLog) Text() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() <= MaxText {
		b, err := io.ReadAll(f)
		return string(b), err
	}

	b := make([]byte, MaxText)
	if _, err := f.ReadAt(b, info.Size()-MaxText); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if i := bytes.IndexByte(b, '\n'); i >= 0 && i < len(b)-1 {
		b = b[i+1:]
	}
	return fmt.Sprintf("[%d bytes of older log omitted]\n%s", info.Size()-int64(len(b)), b), nil
}

// Truncate empties the file but keeps it.
func (l *RunLog) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return os.ErrClosed
	}
	return l.file.Truncate(0)
}

func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Package applog writes the user-facing activity log: one timestamped line
// per emitted result.
package applog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"autologin/internal/apperr"
)

// Level is the severity column of a log line.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

const timeLayout = "2006-01-02 15:04:05"

// Writer appends to a single file. Appends from one process are serialized;
// separate processes may interleave lines.
type Writer struct {
	path    string
	enabled bool
	now     func() time.Time

	mu sync.Mutex
}

// New creates a writer. A disabled writer accepts and drops every line.
func New(path string, enabled bool) *Writer {
	return &Writer{path: path, enabled: enabled, now: time.Now}
}

// Path returns the log file path.
func (w *Writer) Path() string { return w.path }

// Write appends "[time][LEVEL] message". Line breaks in message are flattened.
func (w *Writer) Write(level Level, message string) error {
	if !w.enabled {
		return nil
	}
	line := fmt.Sprintf("[%s][%s] %s\n", w.now().Format(timeLayout), level, strings.Join(strings.Fields(message), " "))

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return apperr.New(apperr.KindLog, "create log directory", err)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return apperr.New(apperr.KindLog, "open log file", err)
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return apperr.New(apperr.KindLog, "append log line", err)
	}
	if err := f.Close(); err != nil {
		return apperr.New(apperr.KindLog, "close log file", err)
	}
	return nil
}

// Read returns the whole log. A missing file reads as empty.
func (w *Writer) Read() (string, error) {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", apperr.New(apperr.KindLog, "read log file", err)
	}
	return string(data), nil
}

// Trim removes INFO lines older than retention. Warnings, errors and lines
// without a parsable timestamp are kept. The file is replaced through a
// temporary file and rename.
func (w *Writer) Trim(retention time.Duration) error {
	if !w.enabled || retention <= 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	in, err := os.Open(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperr.New(apperr.KindLog, "open log file", err)
	}
	defer in.Close()

	cutoff := w.now().Add(-retention)
	tmpPath := fmt.Sprintf("%s.%d.tmp", w.path, time.Now().UnixNano())
	out, err := os.Create(tmpPath)
	if err != nil {
		return apperr.New(apperr.KindLog, "create temp log file", err)
	}

	writer := bufio.NewWriter(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if expired(line, cutoff) {
			continue
		}
		if _, err := writer.WriteString(line + "\n"); err != nil {
			_ = out.Close()
			_ = os.Remove(tmpPath)
			return apperr.New(apperr.KindLog, "write temp log file", err)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return apperr.New(apperr.KindLog, "scan log file", err)
	}
	if err := writer.Flush(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return apperr.New(apperr.KindLog, "flush temp log file", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return apperr.New(apperr.KindLog, "close temp log file", err)
	}
	_ = in.Close()

	if err := os.Rename(tmpPath, w.path); err != nil {
		_ = os.Remove(tmpPath)
		return apperr.New(apperr.KindLog, "replace log file", err)
	}
	return nil
}

func expired(line string, cutoff time.Time) bool {
	// [2006-01-02 15:04:05][INFO] ...
	if len(line) < len(timeLayout)+2 || line[0] != '[' {
		return false
	}
	ts, err := time.ParseInLocation(timeLayout, line[1:len(timeLayout)+1], time.Local)
	if err != nil {
		return false
	}
	rest := line[len(timeLayout)+1:]
	if !strings.HasPrefix(rest, "]["+string(LevelInfo)+"]") {
		return false
	}
	return ts.Before(cutoff)
}

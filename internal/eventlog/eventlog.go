// Package eventlog provides the durable append-only event log and the
// persistence-first event bus built on top of it. The NDJSON file is the
// source of truth for every mission: state is reconstructed from it after
// a crash, so an append is not complete until the bytes are synced.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/kalyank1144/Ordinex-sub008/internal/events"
)

// Log is an append-only NDJSON event log. One JSON object per line,
// fsynced before Append returns. Safe for concurrent use.
type Log struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	logger *zap.Logger
	mu     sync.Mutex
}

// Open opens (or creates) the log file at path in append mode.
func Open(path string, logger *zap.Logger) (*Log, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return &Log{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
		logger: logger,
	}, nil
}

// Append validates, serializes, and durably writes one event. The event
// is on disk when Append returns nil.
func (l *Log) Append(event *events.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("refusing to append invalid event: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write event %s: %w", event.ID, err)
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write event %s: %w", event.ID, err)
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event %s: %w", event.ID, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event log: %w", err)
	}

	l.logger.Debug("event appended",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("task_id", event.TaskID))
	return nil
}

// ReadAll replays every event in the log in append order. A truncated
// final line (torn write from a crash) is skipped with a warning; any
// other malformed line is an error, because silently dropping mid-log
// records would corrupt replay.
func (l *Log) ReadAll() ([]*events.Event, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open event log for replay: %w", err)
	}
	defer file.Close()

	var out []*events.Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event events.Event
		if err := json.Unmarshal(line, &event); err != nil {
			l.logger.Warn("skipping malformed trailing event log line",
				zap.Int("line", lineNo), zap.Error(err))
			if scanner.Scan() {
				return nil, fmt.Errorf("malformed event log line %d: %w", lineNo, err)
			}
			break
		}
		out = append(out, &event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return out, nil
}

// EventsByTask replays only the events for one task, cloned so callers
// cannot mutate log-owned state.
func (l *Log) EventsByTask(taskID string) ([]*events.Event, error) {
	all, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []*events.Event
	for _, ev := range all {
		if ev.TaskID == taskID {
			out = append(out, ev.Clone())
		}
	}
	return out, nil
}

// Path returns the log file's path.
func (l *Log) Path() string { return l.path }

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event log: %w", err)
	}
	return l.file.Close()
}

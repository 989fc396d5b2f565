package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/ksuid"
)

// EventType names a job lifecycle transition.
type EventType string

const (
	EventStart      EventType = "start"
	EventStop       EventType = "stop"
	EventContinue   EventType = "continue"
	EventDone       EventType = "done"
	EventForeground EventType = "fg"
	EventBackground EventType = "bg"
)

// JobEvent describes one transition of a job.
type JobEvent struct {
	Type    EventType `json:"type"`
	JobID   int       `json:"job_id"`
	Pgid    int       `json:"pgid"`
	Pids    []int     `json:"pids,omitempty"`
	Command string    `json:"command"`
	Status  int       `json:"status"`
}

// LogEntry is a single line of the event log.
type LogEntry struct {
	TimestampMicros int64     `json:"timestamp_micros"`
	SessionID       string    `json:"session_id"`
	Event           *JobEvent `json:"job_event,omitempty"`
}

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *LogEntry) error

// Logger captures job events for later reporting.
type Logger struct {
	Record LogRecorder

	now func() time.Time
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(le *LogEntry) error {
			entry, err := json.Marshal(le)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewNopLogger creates a Logger that drops every event.
func NewNopLogger() *Logger {
	return &Logger{
		Record: func(*LogEntry) error { return nil },
	}
}

func (l *Logger) timestamp() int64 {
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	return now().UnixNano() / int64(time.Microsecond)
}

func (l *Logger) recordEvent(sessionID string, event JobEvent) error {
	le := &LogEntry{
		TimestampMicros: l.timestamp(),
		SessionID:       sessionID,
		Event:           &event,
	}

	return l.Record(le)
}

// NewSession creates a logger with a fresh session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: ksuid.New().String()}
}

// Sessionless creates a logger without a session ID.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: ""}
}

// SessionLogger logs events with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
}

// SessionID returns the ID attached to every event.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

// Record stores a job event.
func (l *SessionLogger) Record(event JobEvent) error {
	return l.recordEvent(l.sessionID, event)
}

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonLinesLogRecorder(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewJsonLinesLogRecorder(buf)
	l.now = func() time.Time {
		return time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)
	}

	session := l.NewSession()
	require.NotEmpty(t, session.SessionID())

	require.NoError(t, session.Record(JobEvent{Type: EventStart, JobID: 1, Pgid: 42, Pids: []int{42}, Command: "sleep 5"}))
	require.NoError(t, session.Record(JobEvent{Type: EventDone, JobID: 1, Pgid: 42, Command: "sleep 5"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, session.SessionID(), first.SessionID)
	assert.Equal(t, int64(1136171045000000), first.TimestampMicros)
	assert.Equal(t, EventStart, first.Event.Type)
	assert.Equal(t, []int{42}, first.Event.Pids)
}

func TestSessionsAreDistinct(t *testing.T) {
	l := NewNopLogger()
	assert.NotEqual(t, l.NewSession().SessionID(), l.NewSession().SessionID())
	assert.Equal(t, "", l.Sessionless().SessionID())
	assert.NoError(t, l.Sessionless().Record(JobEvent{Type: EventStart}))
}

func TestReport(t *testing.T) {
	buf := &bytes.Buffer{}
	session := NewJsonLinesLogRecorder(buf).NewSession()

	events := []JobEvent{
		{Type: EventStart, JobID: 1, Command: "sleep 5"},
		{Type: EventStop, JobID: 1, Command: "sleep 5", Status: 148},
		{Type: EventBackground, JobID: 1, Command: "sleep 5"},
		{Type: EventDone, JobID: 1, Command: "sleep 5"},
		{Type: EventStart, JobID: 1, Command: "false"},
		{Type: EventDone, JobID: 1, Command: "false", Status: 1},
	}
	for _, ev := range events {
		require.NoError(t, session.Record(ev))
	}
	buf.WriteString(`{"timestamp_micros": 1}` + "\n")

	report := NewReport()
	require.NoError(t, ReadJSONLinesLog(buf, report.Update))

	assert.Equal(t, 7, report.LogEntries)
	assert.Equal(t, 1, report.InvalidEntries.count("missing job_event"))
	assert.Equal(t, 6, report.Sessions.count(session.SessionID()))
	assert.Equal(t, 2, report.Events.count("start"))
	assert.Equal(t, 1, report.Events.count("bg"))
	assert.Equal(t, 1, report.Commands.count("sleep"))
	assert.Equal(t, 1, report.Stopped.count("sleep"))
	assert.Equal(t, 1, report.Statuses.count("false", "1"))
	assert.Equal(t, 1, report.Statuses.count("sleep", "0"))

	out, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"stopped_commands":{"sleep":1}`)
}

func TestReadJSONLinesLog_invalid(t *testing.T) {
	err := ReadJSONLinesLog(strings.NewReader("{not json"), func(*LogEntry) {})
	assert.Error(t, err)
}

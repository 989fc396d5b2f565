package logger

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"invalid_log_entries,omitempty"`
	Sessions       StrCounter `json:"sessions"`

	Events   StrCounter   `json:"events"`
	Commands StrCounter   `json:"commands"`
	Statuses *PathCounter `json:"finished"`
	Stopped  StrCounter   `json:"stopped_commands"`
}

func NewReport() *Report {
	return &Report{
		Statuses: NewPathCounter("command", "status"),
	}
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	event := le.Event
	if event == nil {
		r.InvalidEntries.Increment("missing job_event")
		return
	}

	if le.SessionID != "" {
		r.Sessions.Increment(le.SessionID)
	}
	r.Events.Increment(string(event.Type))

	name := commandName(event.Command)
	switch event.Type {
	case EventStart:
		r.Commands.Increment(name)
	case EventDone:
		if r.Statuses == nil {
			r.Statuses = NewPathCounter("command", "status")
		}
		r.Statuses.Increment(name, strconv.Itoa(event.Status))
	case EventStop:
		r.Stopped.Increment(name)
	}
}

func commandName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// count returns how many times key was seen.
func (s *StrCounter) count(key string) int {
	return s.internal[key]
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of strings seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// count returns how many times the given path was seen.
func (ctr *PathCounter) count(path ...string) int {
	return ctr.internal[toKey(path...)]
}

// MarshalJSON implemnts custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}

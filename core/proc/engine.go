// Package proc turns argument vectors into process groups and tracks them
// through their job-control lifecycle.
package proc

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/josephlewis42/jobsh/core/term"
)

// Notice formats shown to the user.
const (
	noticeStarted   = "[%d] %s\n"
	noticeStopped   = "[%d]+  Stopped                 %s\n"
	noticeDone      = "\n[%d]+  Done                    %s\n"
	noticeContinued = "\n[%d]+  Continued               %s\n"
	noticeResumed   = "[%d]+ %s &\n"
)

// EventRecorder receives job lifecycle events.
type EventRecorder interface {
	Record(event logger.JobEvent) error
}

// Options configures an Engine.
type Options struct {
	// Stdin, Stdout and Stderr are inherited by every launched process.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Notices receives job status lines. Defaults to Stdout.
	Notices io.Writer

	// Terminal controls the foreground process group. Defaults to a
	// non-interactive controller.
	Terminal term.Controller

	Logger hclog.Logger
	Events EventRecorder
}

// Engine launches commands and owns the job table of a shell session.
type Engine struct {
	Jobs     *jobs.Table
	Terminal term.Controller

	stdin, stdout, stderr *os.File
	notices               io.Writer
	log                   hclog.Logger
	events                EventRecorder
}

// NewEngine creates an engine with an empty job table.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		Jobs:     jobs.NewTable(),
		Terminal: opts.Terminal,
		stdin:    opts.Stdin,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
		notices:  opts.Notices,
		log:      opts.Logger,
		events:   opts.Events,
	}

	if e.stdin == nil {
		e.stdin = os.Stdin
	}
	if e.stdout == nil {
		e.stdout = os.Stdout
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}
	if e.notices == nil {
		e.notices = e.stdout
	}
	if e.Terminal == nil {
		e.Terminal = term.Nop()
	}
	if e.log == nil {
		e.log = hclog.NewNullLogger()
	}
	e.log = e.log.Named("proc")

	return e
}

func (e *Engine) notify(format string, job *jobs.Job) {
	fmt.Fprintf(e.notices, format, job.ID, job.Command)
}

// diag prints a diagnostic for the user.
func (e *Engine) diag(err error) {
	fmt.Fprintf(e.stderr, "jobsh: %v\n", err)
}

func (e *Engine) record(kind logger.EventType, job *jobs.Job, status int) {
	if e.events == nil {
		return
	}

	err := e.events.Record(logger.JobEvent{
		Type:    kind,
		JobID:   job.ID,
		Pgid:    job.Pgid,
		Pids:    job.Pids(),
		Command: job.Command,
		Status:  status,
	})
	if err != nil {
		e.log.Warn("couldn't record job event", "event", kind, "error", err)
	}
}

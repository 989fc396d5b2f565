package proc

import (
	"fmt"

	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var (
	// ErrNoSuchJob is returned when fg or bg has no job to act on.
	ErrNoSuchJob = jobs.ErrNotFound
	// ErrAlreadyRunning is returned by Background for running jobs.
	ErrAlreadyRunning = errors.New("job already in background")
)

// JobSpec selects a job for fg and bg. The zero value selects the default
// job.
type JobSpec struct {
	ID       int
	Explicit bool
}

func (e *Engine) selectJob(spec JobSpec, defaults ...jobs.State) (*jobs.Job, error) {
	if spec.Explicit {
		return e.Jobs.Find(spec.ID)
	}
	job, err := e.Jobs.Latest(defaults...)
	if err != nil {
		return nil, errors.Wrap(err, "current")
	}
	return job, nil
}

// Foreground moves a running or stopped job into the foreground, continuing
// it if needed, and waits for it like a freshly launched foreground job.
func (e *Engine) Foreground(spec JobSpec) (int, error) {
	job, err := e.selectJob(spec, jobs.Running, jobs.Stopped)
	if err != nil {
		return StatusFailure, err
	}

	fmt.Fprintln(e.notices, job.Command)

	resume := job.State == jobs.Stopped
	if err := e.Jobs.SetState(job, jobs.Foreground); err != nil {
		return StatusFailure, err
	}
	e.record(logger.EventForeground, job, 0)

	return e.waitForeground(job, resume), nil
}

// Background continues a stopped job without waiting for it.
func (e *Engine) Background(spec JobSpec) error {
	job, err := e.selectJob(spec, jobs.Stopped)
	if err != nil {
		return err
	}
	if job.State == jobs.Running {
		return errors.Wrapf(ErrAlreadyRunning, "%%%d", job.ID)
	}

	e.notify(noticeResumed, job)
	if err := e.Jobs.SetState(job, jobs.Running); err != nil {
		return err
	}
	e.record(logger.EventBackground, job, 0)

	if err := unix.Kill(-job.Pgid, unix.SIGCONT); err != nil {
		return errors.Wrapf(err, "%%%d: couldn't continue", job.ID)
	}
	return nil
}

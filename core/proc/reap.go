package proc

import (
	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/logger"
	"golang.org/x/sys/unix"
)

// Reap collects every pending child status change without blocking and
// reconciles the job table. The shell calls it once per prompt.
func (e *Engine) Reap() {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			return
		}

		job, ok := e.Jobs.FindByPid(pid)
		if !ok {
			e.log.Trace("discarding status of untracked process", "pid", pid)
			continue
		}
		e.reconcile(job, pid, ws)
	}
}

func (e *Engine) reconcile(job *jobs.Job, pid int, ws unix.WaitStatus) {
	switch {
	case ws.Exited() || ws.Signaled():
		job.MarkExited(pid, exitStatus(ws))
		if !job.Finished() {
			return
		}
		if job.State == jobs.Running {
			e.notify(noticeDone, job)
		}
		e.Jobs.Remove(job)
		e.record(logger.EventDone, job, job.Status())

	case ws.Stopped():
		// Every member of a pipeline reports its own stop.
		if job.State == jobs.Stopped {
			return
		}
		e.Jobs.SetState(job, jobs.Stopped)
		e.notify(noticeStopped, job)
		e.record(logger.EventStop, job, exitStatus(ws))

	case ws.Continued():
		// Report once per job, for the first live member.
		if pid != job.Leader() {
			return
		}
		e.Jobs.SetState(job, jobs.Running)
		e.notify(noticeContinued, job)
		e.record(logger.EventContinue, job, 0)
	}
}

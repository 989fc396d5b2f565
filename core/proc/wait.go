package proc

import (
	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/logger"
	"golang.org/x/sys/unix"
)

// exitStatus converts a wait status into a shell exit status.
func exitStatus(ws unix.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	case ws.Stopped():
		return 128 + int(ws.StopSignal())
	default:
		return 0
	}
}

// waitForeground hands the terminal to job, optionally continues it, and
// blocks until every process of the job has terminated or one of them
// stops. Terminated jobs are removed from the table, stopped ones stay.
// The terminal is returned to the shell afterwards.
func (e *Engine) waitForeground(job *jobs.Job, resume bool) int {
	if err := e.Terminal.GiveForeground(job.Pgid); err != nil {
		e.log.Warn("couldn't give terminal to job", "job", job.ID, "error", err)
	}
	defer func() {
		if err := e.Terminal.Reclaim(); err != nil {
			e.log.Warn("couldn't reclaim terminal", "error", err)
		}
	}()

	if resume {
		if err := unix.Kill(-job.Pgid, unix.SIGCONT); err != nil {
			e.log.Warn("couldn't continue job", "job", job.ID, "error", err)
		}
	}

	for !job.Finished() {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-job.Pgid, &ws, unix.WUNTRACED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			// Nothing left to wait for; whatever remains was collected
			// elsewhere.
			e.log.Debug("foreground wait ended", "job", job.ID, "error", err)
			break
		}

		if ws.Stopped() {
			if err := e.Jobs.SetState(job, jobs.Stopped); err != nil {
				e.log.Warn("couldn't mark job stopped", "job", job.ID, "error", err)
			}
			e.notify(noticeStopped, job)
			e.record(logger.EventStop, job, exitStatus(ws))
			return exitStatus(ws)
		}

		e.log.Trace("foreground process finished", "pid", pid, "status", exitStatus(ws))
		job.MarkExited(pid, exitStatus(ws))
	}

	e.Jobs.Remove(job)
	e.record(logger.EventDone, job, job.Status())
	return job.Status()
}

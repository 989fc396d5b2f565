// Package jobs tracks the processes launched by a shell session.
package jobs

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when no job matches a lookup.
	ErrNotFound = errors.New("no such job")

	// ErrForegroundBusy is returned when a second job would become the
	// foreground job.
	ErrForegroundBusy = errors.New("another job is in the foreground")
)

// State is the job-control state of a Job.
type State int

const (
	// Foreground jobs own the terminal and the shell is waiting on them.
	Foreground State = iota
	// Running jobs execute in the background.
	Running
	// Stopped jobs have been suspended by a stop signal.
	Stopped
)

func (s State) String() string {
	switch s {
	case Foreground:
		return "Foreground"
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Process is one OS process belonging to a job.
type Process struct {
	Pid    int
	Exited bool
	Status int
}

// Job is a single command or pipeline tracked by the shell.
type Job struct {
	// ID is the small job number shown to the user.
	ID int
	// Pgid is the process group of the job. It is also the pid of the group
	// leader.
	Pgid int
	// Command is the display text of the job.
	Command string
	// State is the job-control state.
	State State

	procs []*Process
}

// Pids returns the process ids of every member of the job in launch order.
func (j *Job) Pids() []int {
	out := make([]int, 0, len(j.procs))
	for _, p := range j.procs {
		out = append(out, p.Pid)
	}
	return out
}

// Has reports whether pid is a member of the job.
func (j *Job) Has(pid int) bool {
	return j.process(pid) != nil
}

func (j *Job) process(pid int) *Process {
	for _, p := range j.procs {
		if p.Pid == pid {
			return p
		}
	}
	return nil
}

// MarkExited records the termination of a member process. It returns false
// if pid doesn't belong to the job.
func (j *Job) MarkExited(pid, status int) bool {
	p := j.process(pid)
	if p == nil {
		return false
	}
	p.Exited = true
	p.Status = status
	return true
}

// Finished is true once every member process has terminated.
func (j *Job) Finished() bool {
	for _, p := range j.procs {
		if !p.Exited {
			return false
		}
	}
	return true
}

// Leader returns the pid of the first member that is still alive, or zero
// if all members have exited.
func (j *Job) Leader() int {
	for _, p := range j.procs {
		if !p.Exited {
			return p.Pid
		}
	}
	return 0
}

// Status is the exit status of the last process in the pipeline.
func (j *Job) Status() int {
	if len(j.procs) == 0 {
		return 0
	}
	return j.procs[len(j.procs)-1].Status
}

// Table holds the jobs of one shell session. It is not safe for concurrent
// use; the shell only touches it from its main loop.
type Table struct {
	jobs   []*Job
	nextID int
}

// NewTable creates an empty job table.
func NewTable() *Table {
	return &Table{nextID: 1}
}

// Insert registers a new job. The first pid is the process group leader.
func (t *Table) Insert(pids []int, command string, state State) (*Job, error) {
	if len(pids) == 0 {
		return nil, errors.New("jobs: a job needs at least one process")
	}
	if state == Foreground {
		if _, ok := t.foreground(); ok {
			return nil, ErrForegroundBusy
		}
	}
	if t.nextID < 1 {
		t.nextID = 1
	}

	job := &Job{
		ID:      t.nextID,
		Pgid:    pids[0],
		Command: command,
		State:   state,
	}
	for _, pid := range pids {
		job.procs = append(job.procs, &Process{Pid: pid})
	}

	t.nextID++
	t.jobs = append(t.jobs, job)
	return job, nil
}

// SetState changes the state of a job while keeping at most one job in the
// foreground.
func (t *Table) SetState(job *Job, state State) error {
	if state == Foreground {
		if fg, ok := t.foreground(); ok && fg != job {
			return ErrForegroundBusy
		}
	}
	job.State = state
	return nil
}

// Remove deletes a job from the table. Job numbering restarts at 1 once the
// table is empty.
func (t *Table) Remove(job *Job) {
	for i, j := range t.jobs {
		if j == job {
			t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
			break
		}
	}
	if len(t.jobs) == 0 {
		t.nextID = 1
	}
}

// Find looks up a job by its id.
func (t *Table) Find(id int) (*Job, error) {
	for _, j := range t.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "%%%d", id)
}

// FindByPid looks up the job containing the given process.
func (t *Table) FindByPid(pid int) (*Job, bool) {
	for _, j := range t.jobs {
		if j.Has(pid) {
			return j, true
		}
	}
	return nil, false
}

// Latest returns the most recently registered job in one of the given
// states.
func (t *Table) Latest(states ...State) (*Job, error) {
	for i := len(t.jobs) - 1; i >= 0; i-- {
		for _, s := range states {
			if t.jobs[i].State == s {
				return t.jobs[i], nil
			}
		}
	}
	return nil, ErrNotFound
}

// All returns the jobs in registration order.
func (t *Table) All() []*Job {
	out := make([]*Job, len(t.jobs))
	copy(out, t.jobs)
	return out
}

// Len returns the number of tracked jobs.
func (t *Table) Len() int {
	return len(t.jobs)
}

func (t *Table) foreground() (*Job, bool) {
	for _, j := range t.jobs {
		if j.State == Foreground {
			return j, true
		}
	}
	return nil, false
}

// CommandText builds the display string for a job from its tokens.
func CommandText(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Package term owns the shell's relationship with its controlling terminal.
//
// Everything else in the shell reasons about "who owns the terminal" through
// the Controller interface and never issues terminal ioctls itself.
package term

import (
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Controller hands the terminal between the shell and its jobs.
type Controller interface {
	// Interactive is true when the session has a controlling terminal.
	Interactive() bool
	// Fd is the terminal descriptor, or -1 for non-interactive sessions.
	Fd() int
	// Init makes the shell the foreground process group of the terminal and
	// shields the shell from job-control signals.
	Init() error
	// GiveForeground makes pgid the foreground process group.
	GiveForeground(pgid int) error
	// Reclaim returns the terminal to the shell.
	Reclaim() error
}

// jobControlSignals must only reach the foreground job, never the shell.
var jobControlSignals = []os.Signal{
	unix.SIGINT,
	unix.SIGQUIT,
	unix.SIGTSTP,
	unix.SIGTTIN,
	unix.SIGTTOU,
}

// New returns a terminal Controller for f. Sessions whose input isn't a
// terminal get a Controller that does nothing.
func New(f *os.File, logger hclog.Logger) Controller {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	if !isatty.IsTerminal(f.Fd()) {
		logger.Debug("input is not a terminal, job control disabled")
		return Nop()
	}

	return &Terminal{
		fd:      int(f.Fd()),
		log:     logger.Named("term"),
		signals: make(chan os.Signal, len(jobControlSignals)),
	}
}

// Terminal is the Controller for an interactive session.
type Terminal struct {
	fd      int
	pgid    int
	log     hclog.Logger
	signals chan os.Signal
}

var _ Controller = (*Terminal)(nil)

func (t *Terminal) Interactive() bool { return true }

func (t *Terminal) Fd() int { return t.fd }

// Init waits until the shell is in the foreground, moves it into its own
// process group and claims the terminal.
//
// The job-control signals are caught and discarded rather than ignored:
// ignored dispositions survive exec, caught ones are reset to the default in
// every child.
func (t *Terminal) Init() error {
	for {
		owner, err := t.foreground()
		if err != nil {
			return err
		}
		pgrp := unix.Getpgrp()
		if owner == pgrp {
			break
		}
		t.log.Debug("shell is in the background, stopping", "pgrp", pgrp, "owner", owner)
		if err := unix.Kill(-pgrp, unix.SIGTTIN); err != nil {
			return errors.Wrap(err, "term: signal self")
		}
	}

	signal.Notify(t.signals, jobControlSignals...)
	go t.discard()

	pid := unix.Getpid()
	if unix.Getpgrp() != pid {
		if err := unix.Setpgid(pid, pid); err != nil {
			return errors.Wrap(err, "term: couldn't put the shell in its own process group")
		}
	}
	t.pgid = pid

	return t.GiveForeground(pid)
}

func (t *Terminal) discard() {
	for sig := range t.signals {
		t.log.Trace("ignoring signal", "signal", sig)
	}
}

// GiveForeground sets the terminal's foreground process group.
func (t *Terminal) GiveForeground(pgid int) error {
	// A background process changing the foreground group gets SIGTTOU unless
	// the signal is ignored for the duration of the call.
	signal.Ignore(unix.SIGTTOU)
	defer signal.Notify(t.signals, unix.SIGTTOU)

	if err := unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid); err != nil {
		return errors.Wrapf(err, "term: couldn't give terminal to process group %d", pgid)
	}
	t.log.Trace("terminal handed over", "pgid", pgid)
	return nil
}

// Reclaim gives the terminal back to the shell's process group.
func (t *Terminal) Reclaim() error {
	return t.GiveForeground(t.pgid)
}

func (t *Terminal) foreground() (int, error) {
	pgid, err := unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
	if err != nil {
		return 0, errors.Wrap(err, "term: couldn't read foreground process group")
	}
	return pgid, nil
}

// Nop returns a Controller for sessions without a terminal.
func Nop() Controller {
	return nopController{}
}

type nopController struct{}

func (nopController) Interactive() bool { return false }
func (nopController) Fd() int { return -1 }
func (nopController) Init() error { return nil }
func (nopController) GiveForeground(int) error { return nil }
func (nopController) Reclaim() error { return nil }

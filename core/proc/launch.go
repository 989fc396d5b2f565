package proc

import (
	"io/fs"
	"os"
	"os/exec"
	"syscall"

	"github.com/josephlewis42/jobsh/core/redirect"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Exit statuses for stages that never ran.
const (
	StatusFailure     = 1
	StatusUsage       = 2
	StatusNotRunnable = 126
	StatusNotFound    = 127
)

// stage is one program invocation with the streams it starts with.
type stage struct {
	inv   redirect.Invocation
	files [3]*os.File
}

// launchError is a failure that only affects one stage.
type launchError struct {
	err    error
	status int
}

func (l *launchError) Error() string { return l.err.Error() }

func (l *launchError) Unwrap() error { return l.err }

// lookPath resolves the program of a stage the same way exec does and maps
// failures to shell exit statuses.
func lookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	switch {
	case err == nil:
		return path, nil
	case errors.Is(err, exec.ErrDot):
		return path, nil
	case errors.Is(err, exec.ErrNotFound):
		return "", &launchError{errors.Errorf("%s: command not found", name), StatusNotFound}
	case errors.Is(err, fs.ErrNotExist):
		return "", &launchError{errors.Errorf("%s: no such file or directory", name), StatusNotFound}
	case errors.Is(err, fs.ErrPermission):
		return "", &launchError{errors.Errorf("%s: permission denied", name), StatusNotRunnable}
	default:
		return "", &launchError{errors.Wrap(err, name), StatusNotRunnable}
	}
}

// openBinding opens the file of a redirect.
func openBinding(b redirect.Binding) (*os.File, error) {
	f, err := b.Open()
	if err != nil {
		return nil, &launchError{errors.Wrap(err, "redirect"), StatusFailure}
	}
	return f, nil
}

// applyBindings replaces the stage streams with the redirect targets. The
// returned files belong to the caller and must be closed once the child
// has been spawned.
func applyBindings(st *stage) ([]*os.File, error) {
	var opened []*os.File
	for _, b := range st.inv.Bindings {
		f, err := openBinding(b)
		if err != nil {
			closeAll(opened)
			return nil, err
		}
		opened = append(opened, f)

		switch b.Stream {
		case redirect.Stdin:
			st.files[0] = f
		case redirect.Stdout:
			st.files[1] = f
		case redirect.Stderr:
			st.files[2] = f
		case redirect.StdoutStderr:
			st.files[1] = f
			st.files[2] = f
		}
	}
	return opened, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

// spawn creates the process for one stage.
//
// The child joins process group pgid, or leads a new group when pgid is
// zero. A new foreground group takes the terminal from inside the child
// before the program starts. Signals the shell catches are reset to their
// defaults in the child by the runtime.
//
// os.StartProcess only returns after the child has exec'd, so the child's own
// process group assignment has already happened. The parent repeats it
// anyway and tolerates EACCES, which the kernel returns once the child has
// exec'd.
func (e *Engine) spawn(st *stage, pgid int, foreground bool) (int, error) {
	opened, err := applyBindings(st)
	if err != nil {
		return 0, err
	}
	defer closeAll(opened)

	path, err := lookPath(st.inv.Argv[0])
	if err != nil {
		return 0, err
	}

	sys := &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
	if foreground && pgid == 0 && e.Terminal.Interactive() {
		sys.Foreground = true
		sys.Ctty = e.Terminal.Fd()
	}

	proc, err := os.StartProcess(path, st.inv.Argv, &os.ProcAttr{
		Files: st.files[:],
		Sys:   sys,
	})
	if err != nil {
		status := StatusFailure
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, unix.ENOEXEC) {
			status = StatusNotRunnable
		}
		return 0, &launchError{errors.Wrapf(err, "%s", st.inv.Argv[0]), status}
	}

	pid := proc.Pid
	// Status is collected with wait4 directly so stops are visible; the
	// handle isn't needed.
	proc.Release()

	target := pgid
	if target == 0 {
		target = pid
	}
	if err := unix.Setpgid(pid, target); err != nil && err != unix.EACCES && err != unix.ESRCH {
		e.log.Debug("setpgid from parent failed", "pid", pid, "pgid", target, "error", err)
	}

	e.log.Debug("spawned", "pid", pid, "pgid", target, "argv", st.inv.Argv, "foreground", foreground)
	return pid, nil
}

// stageStatus extracts the exit status for a stage that failed to launch.
func stageStatus(err error) int {
	var le *launchError
	if errors.As(err, &le) {
		return le.status
	}
	return StatusFailure
}

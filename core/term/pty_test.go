package term_test

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/creack/pty"
	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/proc"
	"github.com/josephlewis42/jobsh/core/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const sessionEnv = "JOBSH_TERM_SESSION"

// runInSession runs the named test in a child process that leads a new
// session with a fresh pty as its controlling terminal, and returns what the
// child wrote to the terminal.
func runInSession(t *testing.T, name string) string {
	t.Helper()

	ptmx, tty, err := pty.Open()
	require.NoError(t, err)
	defer ptmx.Close()

	cmd := exec.Command(os.Args[0], "-test.run=^"+name+"$", "-test.v")
	cmd.Env = append(os.Environ(), sessionEnv+"=1")
	cmd.Stdin, cmd.Stdout, cmd.Stderr = tty, tty, tty
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: 0}
	require.NoError(t, cmd.Start())
	tty.Close()

	out := &bytes.Buffer{}
	copied := make(chan struct{})
	go func() {
		// Reads end with EIO once the child side is closed.
		io.Copy(out, ptmx)
		close(copied)
	}()

	waitErr := cmd.Wait()
	<-copied
	require.NoError(t, waitErr, out.String())
	return out.String()
}

func inSession(t *testing.T) bool {
	t.Helper()
	return os.Getenv(sessionEnv) == "1"
}

func foreground(t *testing.T) int {
	t.Helper()
	pgid, err := unix.IoctlGetInt(int(os.Stdin.Fd()), unix.TIOCGPGRP)
	require.NoError(t, err)
	return pgid
}

func TestTerminal(t *testing.T) {
	if inSession(t) {
		t.Skip("already in a session")
	}
	out := runInSession(t, "TestTerminalSession")
	assert.Contains(t, out, "--- PASS: TestTerminalSession")
}

func TestTerminalSession(t *testing.T) {
	if !inSession(t) {
		t.Skip("run by TestTerminal")
	}

	ctrl := term.New(os.Stdin, nil)
	require.True(t, ctrl.Interactive())
	require.NoError(t, ctrl.Init())

	shell := unix.Getpid()
	assert.Equal(t, shell, unix.Getpgrp())
	assert.Equal(t, shell, foreground(t))

	t.Run("job control signals don't reach the shell", func(t *testing.T) {
		for _, sig := range []unix.Signal{unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU} {
			require.NoError(t, unix.Kill(shell, sig))
		}
		// Still running and still in the foreground.
		assert.Equal(t, shell, foreground(t))
	})

	t.Run("give and reclaim", func(t *testing.T) {
		sleep, err := exec.LookPath("sleep")
		require.NoError(t, err)
		child, err := os.StartProcess(sleep, []string{"sleep", "5"}, &os.ProcAttr{
			Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
			Sys:   &syscall.SysProcAttr{Setpgid: true},
		})
		require.NoError(t, err)
		defer func() {
			child.Kill()
			child.Wait()
		}()

		require.NoError(t, ctrl.GiveForeground(child.Pid))
		assert.Equal(t, child.Pid, foreground(t))

		// The shell is a background process now; taking the terminal back
		// must not stop it.
		require.NoError(t, ctrl.Reclaim())
		assert.Equal(t, shell, foreground(t))
	})
}

func TestEngineSession(t *testing.T) {
	if inSession(t) {
		t.Skip("already in a session")
	}
	out := runInSession(t, "TestEngineSessionJobs")
	assert.Contains(t, out, "--- PASS: TestEngineSessionJobs")
	assert.Contains(t, out, "Stopped                 sh -c kill -TSTP $$; echo resumed")
}

func TestEngineSessionJobs(t *testing.T) {
	if !inSession(t) {
		t.Skip("run by TestEngineSession")
	}

	ctrl := term.New(os.Stdin, nil)
	require.NoError(t, ctrl.Init())
	shell := unix.Getpid()

	e := proc.NewEngine(proc.Options{Terminal: ctrl})

	t.Run("foreground job owns the terminal", func(t *testing.T) {
		// Fields 5 and 8 of /proc/PID/stat are the process group and the
		// terminal's foreground group.
		status := e.Run([]string{"sh", "-c", `set -- $(cat /proc/$$/stat); [ "$5" = "$8" ]`})
		assert.Equal(t, 0, status)
		assert.Equal(t, shell, foreground(t))
	})

	t.Run("interactive stop returns the terminal", func(t *testing.T) {
		status := e.Run([]string{"sh", "-c", "kill -TSTP $$; echo resumed"})
		assert.Equal(t, 128+int(unix.SIGTSTP), status)
		assert.Equal(t, shell, foreground(t))

		job, err := e.Jobs.Latest(jobs.Stopped)
		require.NoError(t, err)

		status, err = e.Foreground(proc.JobSpec{ID: job.ID, Explicit: true})
		require.NoError(t, err)
		assert.Equal(t, 0, status)
		assert.Equal(t, shell, foreground(t))
	})

	t.Run("failed exec returns the terminal", func(t *testing.T) {
		noExec := filepath.Join(t.TempDir(), "noexec")
		require.NoError(t, os.WriteFile(noExec, []byte{0, 1, 2, 3}, 0755))

		status := e.Run([]string{noExec})
		assert.Equal(t, proc.StatusNotRunnable, status)
		assert.Equal(t, shell, foreground(t))

		assert.Equal(t, 0, e.Run([]string{"true"}))
		assert.Equal(t, shell, foreground(t))
	})
}

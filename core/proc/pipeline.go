package proc

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/josephlewis42/jobsh/core/redirect"
	"github.com/pkg/errors"
)

// Control tokens.
const (
	TokenPipe       = "|"
	TokenBackground = "&"
)

// SyntaxError is returned for malformed pipelines.
type SyntaxError struct {
	Token string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error near unexpected token `%s'", e.Token)
}

// Command is a parsed command line.
type Command struct {
	// Stages holds the token vector of every pipeline stage.
	Stages [][]string
	// Background is set when the line ended with &.
	Background bool
	// Text is the display text of the whole command.
	Text string
}

// Parse splits tokens into pipeline stages. A trailing & marks the command
// as a background command.
func Parse(tokens []string) (Command, error) {
	var cmd Command
	if len(tokens) > 0 && tokens[len(tokens)-1] == TokenBackground {
		tokens = tokens[:len(tokens)-1]
		cmd.Background = true
	}
	if len(tokens) == 0 {
		return Command{}, &SyntaxError{Token: TokenBackground}
	}
	cmd.Text = jobs.CommandText(tokens)

	var current []string
	for _, tok := range tokens {
		if tok != TokenPipe {
			current = append(current, tok)
			continue
		}
		if len(current) == 0 {
			return Command{}, &SyntaxError{Token: TokenPipe}
		}
		cmd.Stages = append(cmd.Stages, current)
		current = nil
	}
	if len(current) == 0 {
		return Command{}, &SyntaxError{Token: TokenPipe}
	}
	cmd.Stages = append(cmd.Stages, current)

	return cmd, nil
}

// Run executes one command line: a single program or a pipeline, optionally
// in the background. It returns the exit status of the command.
func (e *Engine) Run(tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}

	cmd, err := Parse(tokens)
	if err != nil {
		e.diag(err)
		return StatusUsage
	}

	invocations := make([]redirect.Invocation, 0, len(cmd.Stages))
	for _, st := range cmd.Stages {
		inv, err := redirect.Resolve(st)
		if err != nil {
			e.diag(err)
			return StatusUsage
		}
		invocations = append(invocations, inv)
	}

	job, status, err := e.start(invocations, cmd.Text, !cmd.Background)
	if err != nil {
		e.diag(err)
		return StatusFailure
	}
	if job == nil {
		// No stage could be started. A foreground child may still have
		// claimed the terminal before its exec failed.
		if !cmd.Background {
			if err := e.Terminal.Reclaim(); err != nil {
				e.log.Warn("couldn't reclaim terminal", "error", err)
			}
		}
		return status
	}

	if cmd.Background {
		fmt.Fprintf(e.notices, noticeStarted, job.ID, strings.Join(pidStrings(job), " "))
		return 0
	}

	fgStatus := e.waitForeground(job, false)
	if status != 0 {
		return status
	}
	return fgStatus
}

func pidStrings(job *jobs.Job) []string {
	var out []string
	for _, pid := range job.Pids() {
		out = append(out, strconv.Itoa(pid))
	}
	return out
}

// start spawns every stage, connecting neighbours with pipes, and registers
// the resulting job. Stages that fail to start are reported; their
// neighbours still run and see end of file or a closed pipe.
//
// The returned status is the status of the last stage if it failed to
// start, otherwise zero.
func (e *Engine) start(invocations []redirect.Invocation, text string, foreground bool) (*jobs.Job, int, error) {
	var (
		pids      []int
		pgid      int
		status    int
		prevRead  *os.File
		lastIndex = len(invocations) - 1
	)

	for i, inv := range invocations {
		st := &stage{
			inv:   inv,
			files: [3]*os.File{e.stdin, e.stdout, e.stderr},
		}

		if prevRead != nil {
			st.files[0] = prevRead
		}

		var nextRead, write *os.File
		if i < lastIndex {
			r, w, err := os.Pipe()
			if err != nil {
				if prevRead != nil {
					prevRead.Close()
				}
				if len(pids) == 0 {
					return nil, 0, errors.Wrap(err, "pipe")
				}
				// Stages already running are registered so they can be
				// waited for or reaped.
				e.diag(errors.Wrap(err, "pipe"))
				status = StatusFailure
				break
			}
			nextRead, write = r, w
			st.files[1] = w
		}

		pid, err := e.spawn(st, pgid, foreground)

		// The children own their copies now.
		if write != nil {
			write.Close()
		}
		if prevRead != nil {
			prevRead.Close()
		}
		prevRead = nextRead

		if err != nil {
			e.diag(err)
			if i == lastIndex {
				status = stageStatus(err)
			}
			continue
		}

		if pgid == 0 {
			pgid = pid
		}
		pids = append(pids, pid)
	}

	if len(pids) == 0 {
		return nil, status, nil
	}

	state := jobs.Running
	if foreground {
		state = jobs.Foreground
	}
	job, err := e.Jobs.Insert(pids, text, state)
	if err != nil {
		return nil, 0, errors.Wrap(err, "job table")
	}
	e.record(logger.EventStart, job, 0)

	return job, status, nil
}

package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/proc"
	"github.com/pkg/errors"
)

// Jobs lists the background and stopped jobs.
func Jobs(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "jobs [-lprs] [--color=WHEN]",
		Short: "Display status of jobs.",
	}
	long := cmd.Flags().Bool('l', "list process ids in addition to the normal information")
	pidsOnly := cmd.Flags().Bool('p', "list process group ids only")
	running := cmd.Flags().Bool('r', "restrict output to running jobs")
	stopped := cmd.Flags().Bool('s', "restrict output to stopped jobs")

	colorMode := colorAuto
	if s.Config != nil {
		colorMode = s.Config.Color
	}
	var printer ColorPrinter
	printer.Init(cmd.Flags(), s.Stdout(), colorMode)

	return cmd.Run(s, args, func([]string) int {
		w := s.Stdout()
		for _, job := range s.Engine.Jobs.All() {
			switch {
			case job.State == jobs.Foreground:
				continue
			case *running && job.State != jobs.Running:
				continue
			case *stopped && job.State != jobs.Stopped:
				continue
			}

			if *pidsOnly {
				fmt.Fprintln(w, job.Pgid)
				continue
			}

			label := printer.Sprintf(ColorBoldGreen, "%s", job.State)
			if job.State == jobs.Stopped {
				label = printer.Sprintf(ColorBoldRed, "%s", job.State)
			}

			if *long {
				fmt.Fprintf(w, "[%d] %s %s %s\n", job.ID, joinPids(job.Pids()), label, job.Command)
			} else {
				fmt.Fprintf(w, "[%d] %s %s\n", job.ID, label, job.Command)
			}
		}
		return 0
	})
}

func joinPids(pids []int) string {
	out := make([]string, len(pids))
	for i, pid := range pids {
		out[i] = strconv.Itoa(pid)
	}
	return strings.Join(out, ",")
}

// parseJobSpec reads an optional job argument written as N or %N.
func parseJobSpec(args []string) (proc.JobSpec, error) {
	switch len(args) {
	case 0:
		return proc.JobSpec{}, nil
	case 1:
		id, err := strconv.Atoi(strings.TrimPrefix(args[0], "%"))
		if err != nil || id <= 0 {
			return proc.JobSpec{}, errors.Errorf("%s: no such job", args[0])
		}
		return proc.JobSpec{ID: id, Explicit: true}, nil
	default:
		return proc.JobSpec{}, errors.Errorf("too many arguments")
	}
}

// Fg resumes a job in the foreground and waits for it.
func Fg(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "fg [JOB]",
		Short: "Move a job to the foreground, the most recent one by default.",
	}

	return cmd.Run(s, args, func(rest []string) int {
		spec, err := parseJobSpec(rest)
		if err != nil {
			s.Errorf("fg: %v", err)
			return 1
		}

		status, err := s.Engine.Foreground(spec)
		if err != nil {
			s.Errorf("fg: %v", err)
			return 1
		}
		return status
	})
}

// Bg resumes a stopped job in the background.
func Bg(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "bg [JOB]",
		Short: "Resume a stopped job in the background, the most recent one by default.",
	}

	return cmd.Run(s, args, func(rest []string) int {
		spec, err := parseJobSpec(rest)
		if err != nil {
			s.Errorf("bg: %v", err)
			return 1
		}

		if err := s.Engine.Background(spec); err != nil {
			s.Errorf("bg: %v", err)
			return 1
		}
		return 0
	})
}

func init() {
	AllBuiltins["jobs"] = ShellBuiltinFunc(Jobs)
	AllBuiltins["fg"] = ShellBuiltinFunc(Fg)
	AllBuiltins["bg"] = ShellBuiltinFunc(Bg)
}

package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/anmitsu/go-shlex"
	"github.com/hashicorp/go-hclog"
	"github.com/josephlewis42/jobsh/core/config"
	"github.com/josephlewis42/jobsh/core/proc"
	"github.com/josephlewis42/jobsh/core/redirect"
	"github.com/pkg/errors"
)

const (
	EnvHome   = "HOME"
	EnvPWD    = "PWD"
	EnvOldPWD = "OLDPWD"
	EnvUser   = "USER"

	DefaultPrompt = `jobsh:\w\$ `

	opAnd = "&&"
	opOr  = "||"
)

// Options configures a Shell.
type Options struct {
	Config *config.Configuration
	Engine *proc.Engine

	// Stdout and Stderr receive builtin output.
	Stdout io.Writer
	Stderr io.Writer

	Logger hclog.Logger
}

// Shell is one interactive or scripted session. It feeds command lines to
// the process engine and runs builtins itself.
type Shell struct {
	Config   *config.Configuration
	Engine   *proc.Engine
	Readline *readline.Instance

	stdout io.Writer
	stderr io.Writer
	log    hclog.Logger
	color  *ColorPrinter

	aliases  map[string]string
	dirStack []string
	history  []string
	lastRet  int

	// Set to true to quit the shell
	Quit bool
}

func NewShell(opts Options) *Shell {
	s := &Shell{
		Config:  opts.Config,
		Engine:  opts.Engine,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		log:     opts.Logger,
		aliases: make(map[string]string),
	}

	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	if s.log == nil {
		s.log = hclog.NewNullLogger()
	}
	if s.Engine == nil {
		s.Engine = proc.NewEngine(proc.Options{Logger: s.log})
	}

	mode := colorAuto
	if s.Config != nil {
		mode = s.Config.Color
		for name, value := range s.Config.Aliases {
			s.aliases[name] = value
		}
	}
	s.color = NewColorPrinter(s.stdout, mode)

	return s
}

// Stdout is where builtins write their output.
func (s *Shell) Stdout() io.Writer {
	return s.stdout
}

// Stderr is where builtins write their diagnostics.
func (s *Shell) Stderr() io.Writer {
	return s.stderr
}

// LastStatus returns the exit status of the last command that ran.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

// Errorf prints a diagnostic prefixed with the shell name.
func (s *Shell) Errorf(format string, a ...interface{}) {
	fmt.Fprintf(s.stderr, "jobsh: "+format+"\n", a...)
}

// LoadEnvironment exports the variables of the configured env files.
func (s *Shell) LoadEnvironment() error {
	if s.Config == nil {
		return nil
	}
	env, err := s.Config.Environment()
	if err != nil {
		return err
	}
	for k, v := range env {
		os.Setenv(k, v)
	}
	return nil
}

// InitReadline sets up interactive line editing with the configured history.
func (s *Shell) InitReadline() error {
	cfg := &readline.Config{
		Stdout:          s.stdout,
		Stderr:          s.stderr,
		InterruptPrompt: "^C",
	}
	if s.Config != nil {
		cfg.HistoryFile = s.Config.HistoryPath()
		cfg.HistoryLimit = s.Config.HistoryLimit
	}

	if err := cfg.Init(); err != nil {
		return err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return err
	}
	s.Readline = rl
	return nil
}

// Close releases the line editor.
func (s *Shell) Close() error {
	if s.Readline == nil {
		return nil
	}
	return s.Readline.Close()
}

// Prompt expands the configured prompt template.
func (s *Shell) Prompt() string {
	prompt := DefaultPrompt
	if s.Config != nil && s.Config.Prompt != "" {
		prompt = s.Config.Prompt
	}

	username := os.Getenv(EnvUser)
	if u, err := user.Current(); username == "" && err == nil {
		username = u.Username
	}
	host, _ := os.Hostname()

	prompt = strings.ReplaceAll(prompt, `\u`, s.color.Sprintf(ColorBoldGreen, "%s", username))
	prompt = strings.ReplaceAll(prompt, `\h`, s.color.Sprintf(ColorBoldGreen, "%s", host))

	pwd, _ := os.Getwd()
	prompt = strings.ReplaceAll(prompt, `\w`, s.color.Sprintf(ColorBoldBlue, "%s", tildePath(pwd)))

	if os.Getuid() == 0 {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}

	return prompt
}

// tildePath shows paths under $HOME relative to ~.
func tildePath(path string) string {
	home := os.Getenv(EnvHome)
	switch {
	case home == "" || home == "/":
		return path
	case path == home:
		return "~"
	case strings.HasPrefix(path, home+"/"):
		return "~" + strings.TrimPrefix(path, home)
	default:
		return path
	}
}

// RunInteractive reads lines from the line editor until exit or end of
// input. Finished background jobs are reported before every prompt.
func (s *Shell) RunInteractive() {
	for !s.Quit {
		s.Engine.Reap()

		s.Readline.SetPrompt(s.Prompt())
		line, err := s.Readline.Readline()

		switch {
		case err == io.EOF:
			return // Input closed, quit.

		case err == readline.ErrInterrupt:
			// Interrupt clears line.
			continue

		case err != nil:
			s.log.Error("reading line", "error", err)
			return

		case strings.TrimSpace(line) == "":
			continue // empty line

		default:
			s.addHistory(line)
			s.ProcessLine(line)
		}
	}
}

// RunScript runs every line of r in order, skipping blank lines and
// comments. Background jobs are reaped after every line.
func (s *Shell) RunScript(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for !s.Quit && scanner.Scan() {
		s.ProcessLine(scanner.Text())
		s.Engine.Reap()
	}
	return scanner.Err()
}

func (s *Shell) addHistory(line string) {
	s.history = append(s.history, line)

	limit := 0
	if s.Config != nil {
		limit = s.Config.HistoryLimit
	}
	if limit > 0 && len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}
}

// ProcessLine tokenizes and alias substitutes a line, then runs its && and ||
// separated segments.
func (s *Shell) ProcessLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	tokens, err := shlex.Split(line, true)
	if err != nil {
		s.Errorf("syntax error: %v", err)
		s.lastRet = proc.StatusUsage
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokens, err = s.substituteAlias(tokens)
	if err != nil {
		s.Errorf("alias: %v", err)
		s.lastRet = proc.StatusUsage
		return
	}

	s.executeLine(tokens)
}

// substituteAlias replaces the first token with the words of its alias.
func (s *Shell) substituteAlias(tokens []string) ([]string, error) {
	value, ok := s.aliases[tokens[0]]
	if !ok {
		return tokens, nil
	}

	words, err := shlex.Split(value, true)
	if err != nil {
		return nil, err
	}
	return append(words, tokens[1:]...), nil
}

// segment is one command of a line and the operator that precedes it.
type segment struct {
	op     string
	tokens []string
}

// splitSegments splits a line on && and ||.
func splitSegments(tokens []string) ([]segment, error) {
	var (
		out []segment
		op  string
	)
	start := 0
	for i := 0; i <= len(tokens); i++ {
		atEnd := i == len(tokens)
		if !atEnd && tokens[i] != opAnd && tokens[i] != opOr {
			continue
		}

		if i == start {
			if atEnd {
				return nil, errors.Errorf("syntax error: unexpected end of line after `%s'", tokens[i-1])
			}
			return nil, errors.Errorf("syntax error near unexpected token `%s'", tokens[i])
		}
		out = append(out, segment{op: op, tokens: tokens[start:i]})

		if !atEnd {
			op = tokens[i]
		}
		start = i + 1
	}
	return out, nil
}

// executeLine runs the segments of a line. A segment after && only runs if
// the last executed segment succeeded, one after || only if it failed.
// Segments are expanded right before they run so $? sees the segment before.
func (s *Shell) executeLine(tokens []string) {
	segments, err := splitSegments(tokens)
	if err != nil {
		s.Errorf("%v", err)
		s.lastRet = proc.StatusUsage
		return
	}

	skip := false
	for _, seg := range segments {
		switch seg.op {
		case opAnd:
			skip = s.lastRet != 0
		case opOr:
			skip = s.lastRet == 0
		}
		if skip {
			continue
		}

		tokens := s.expand(seg.tokens)
		if len(tokens) == 0 {
			// A command that expands to nothing succeeds.
			s.lastRet = 0
			continue
		}
		s.executeSegment(tokens)
		if s.Quit {
			return
		}
	}
}

// executeSegment runs a builtin, or hands the command to the process engine.
// Pipelines are never builtins.
func (s *Shell) executeSegment(tokens []string) {
	if !containsToken(tokens, proc.TokenPipe) {
		argv := tokens
		if argv[len(argv)-1] == proc.TokenBackground {
			argv = argv[:len(argv)-1]
		}
		if len(argv) > 0 {
			if builtin, ok := LookupBuiltin(argv[0]); ok {
				s.lastRet = s.runBuiltin(builtin, argv)
				return
			}
		}
	}

	s.lastRet = s.Engine.Run(tokens)
}

// runBuiltin runs a builtin in the shell process with its output redirected
// if requested.
func (s *Shell) runBuiltin(builtin ShellBuiltin, tokens []string) int {
	inv, err := redirect.Resolve(tokens)
	if err != nil {
		s.Errorf("%v", err)
		return proc.StatusUsage
	}

	if len(inv.Bindings) == 0 {
		return builtin.Main(s, inv.Argv)
	}

	stdout, stderr := s.stdout, s.stderr
	defer func() {
		s.stdout, s.stderr = stdout, stderr
	}()

	for _, b := range inv.Bindings {
		f, err := b.Open()
		if err != nil {
			s.Errorf("%v", err)
			return proc.StatusFailure
		}
		defer f.Close()

		switch b.Stream {
		case redirect.Stdout:
			s.stdout = f
		case redirect.Stderr:
			s.stderr = f
		case redirect.StdoutStderr:
			s.stdout, s.stderr = f, f
		}
	}

	return builtin.Main(s, inv.Argv)
}

func containsToken(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}

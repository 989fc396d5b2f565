// Package redirect splits a pipeline stage into the program invocation and
// the stream redirections that must be applied to it.
package redirect

import (
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrMissingTarget is returned when an operator is the last token.
	ErrMissingTarget = errors.New("syntax error near unexpected token `newline'")
	// ErrEmptyCommand is returned when nothing is left to execute.
	ErrEmptyCommand = errors.New("missing command")
)

// Operator tokens.
const (
	OpInput     = "<"
	OpOutput    = ">"
	OpAppend    = ">>"
	OpError     = "2>"
	OpOutputErr = "&>"
)

// Mode is how a redirect target is opened.
type Mode int

const (
	// Read opens the file read-only.
	Read Mode = iota
	// Truncate opens the file for writing, creating or truncating it.
	Truncate
	// Append opens the file for writing at its end, creating it if needed.
	Append
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Truncate:
		return "truncate"
	case Append:
		return "append"
	default:
		return "unknown"
	}
}

// Stream is the standard stream a binding replaces.
type Stream int

const (
	Stdin Stream = iota
	Stdout
	Stderr
	// StdoutStderr binds both output streams to a single descriptor.
	StdoutStderr
)

// Binding replaces a standard stream of the child with a file.
type Binding struct {
	Path   string
	Mode   Mode
	Stream Stream
}

// Open opens the target file the way the binding's mode requires.
func (b Binding) Open() (*os.File, error) {
	switch b.Mode {
	case Read:
		return os.Open(b.Path)
	case Append:
		return os.OpenFile(b.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	default:
		return os.OpenFile(b.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	}
}

// Invocation is a program invocation with its redirections removed.
type Invocation struct {
	// Argv is passed to the program unchanged; Argv[0] is the program name.
	Argv []string
	// Bindings are applied in order.
	Bindings []Binding
}

// IsOperator reports whether tok is a redirection operator.
func IsOperator(tok string) bool {
	switch tok {
	case OpInput, OpOutput, OpAppend, OpError, OpOutputErr:
		return true
	}
	return false
}

// Resolve scans a stage left to right. The first operator marks the end of
// the program arguments; every later token is either an operator or its
// target. Repeated targets overwrite each other, and &> takes precedence
// over 2>. Files are not touched here.
func Resolve(tokens []string) (Invocation, error) {
	var (
		input, output, errPath *Binding
		bothOutputs            bool
		cmdEnd                 = -1
	)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !IsOperator(tok) {
			continue
		}
		if cmdEnd == -1 {
			cmdEnd = i
		}
		if i+1 >= len(tokens) {
			return Invocation{}, ErrMissingTarget
		}
		target := tokens[i+1]
		i++

		switch tok {
		case OpInput:
			input = &Binding{Path: target, Mode: Read, Stream: Stdin}
		case OpOutput:
			output = &Binding{Path: target, Mode: Truncate, Stream: Stdout}
		case OpAppend:
			output = &Binding{Path: target, Mode: Append, Stream: Stdout}
		case OpError:
			errPath = &Binding{Path: target, Mode: Truncate, Stream: Stderr}
		case OpOutputErr:
			output = &Binding{Path: target, Mode: Truncate, Stream: Stdout}
			bothOutputs = true
		}
	}

	argv := tokens
	if cmdEnd != -1 {
		argv = tokens[:cmdEnd]
	}
	if len(argv) == 0 {
		return Invocation{}, ErrEmptyCommand
	}

	inv := Invocation{Argv: append([]string(nil), argv...)}
	if input != nil {
		inv.Bindings = append(inv.Bindings, *input)
	}
	if output != nil {
		if bothOutputs {
			output.Stream = StdoutStderr
		}
		inv.Bindings = append(inv.Bindings, *output)
	}
	if errPath != nil && !bothOutputs {
		inv.Bindings = append(inv.Bindings, *errPath)
	}
	return inv, nil
}

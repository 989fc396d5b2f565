package core

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// LookupBuiltin finds the builtin named name. The second result is false if
// name isn't a builtin and should be run as a program.
func LookupBuiltin(name string) (ShellBuiltin, bool) {
	builtin, ok := AllBuiltins[name]
	return builtin, ok
}

// BuiltinNames lists the registered builtins in sorted order.
func BuiltinNames() []string {
	var names []string
	for k := range AllBuiltins {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func Unset(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "unset [-v] [NAME...]",
		Short: "Unset values of shell variables.",
	}
	cmd.Flags().Bool('v', "treat NAME as a variable")

	return cmd.Run(s, args, func(names []string) int {
		for _, name := range names {
			if err := os.Unsetenv(name); err != nil {
				s.Errorf("unset: %s: %v", name, err)
				return 1
			}
		}
		return 0
	})
}

func Export(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "export [NAME[=VALUE]...]",
		Short: "Set export attribute for shell variables.",
	}

	return cmd.Run(s, args, func(assignments []string) int {
		if len(assignments) == 0 {
			env := os.Environ()
			sort.Strings(env)
			for _, kv := range env {
				name, value, _ := strings.Cut(kv, "=")
				fmt.Fprintf(s.Stdout(), "declare -x %s=%q\n", name, value)
			}
			return 0
		}

		ret := 0
		for _, kv := range assignments {
			name, value, hasValue := strings.Cut(kv, "=")
			if !validName(name) {
				s.Errorf("export: `%s': not a valid identifier", kv)
				ret = 1
				continue
			}
			if !hasValue {
				// Shell variables are environment variables here.
				continue
			}
			os.Setenv(name, value)
		}
		return ret
	})
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	var dir string
	switch len(args) {
	case 1:
		dir = os.Getenv(EnvHome)
		if dir == "" {
			s.Errorf("%s: HOME not set", args[0])
			return 1
		}
	case 2:
		dir = args[1]
		if dir == "-" {
			dir = os.Getenv(EnvOldPWD)
			if dir == "" {
				s.Errorf("%s: OLDPWD not set", args[0])
				return 1
			}
			fmt.Fprintln(s.Stdout(), dir)
		}
	default:
		s.Errorf("%s: too many arguments", args[0])
		return 1
	}

	if err := s.chdir(dir); err != nil {
		s.Errorf("%s: %v", args[0], err)
		return 1
	}
	return 0
}

// chdir changes the working directory and keeps PWD and OLDPWD up to date.
func (s *Shell) chdir(dir string) error {
	old, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		return err
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	os.Setenv(EnvOldPWD, old)
	os.Setenv(EnvPWD, wd)
	return nil
}

func Pwd(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "pwd",
		Short: "Print the name of the current working directory.",
	}

	return cmd.Run(s, args, func([]string) int {
		wd, err := os.Getwd()
		if err != nil {
			s.Errorf("pwd: %v", err)
			return 1
		}
		fmt.Fprintln(s.Stdout(), wd)
		return 0
	})
}

// Exit quits the shell
func Exit(s *Shell, args []string) int {
	s.Quit = true
	return s.lastRet
}

func History(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "history [-c]",
		Short: "Display the history list with line numbers.",
	}
	clear := cmd.Flags().Bool('c', "clear the history by deleting all entries")

	return cmd.Run(s, args, func([]string) int {
		if *clear {
			if s.Readline != nil {
				s.Readline.ResetHistory()
			}
			s.history = nil
			return 0
		}

		for i, line := range s.history {
			fmt.Fprintf(s.Stdout(), "% 5d  %s\n", i+1, line)
		}
		return 0
	})
}

func Help(s *Shell, args []string) int {
	w := s.Stdout()
	fmt.Fprintln(w, "jobsh, a job control shell")
	fmt.Fprintln(w, "Type program names and arguments, and hit enter.")
	fmt.Fprintln(w, "Use `name --help' to find out more about the builtin `name'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)

	for _, name := range BuiltinNames() {
		fmt.Fprintf(w, "  %s\n", name)
	}

	return 0
}

func init() {
	AllBuiltins["unset"] = ShellBuiltinFunc(Unset)
	AllBuiltins["export"] = ShellBuiltinFunc(Export)
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["pwd"] = ShellBuiltinFunc(Pwd)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}

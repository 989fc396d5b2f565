package core

import (
	"fmt"
	"os"
	"strings"
)

// Pushd saves the working directory on the stack and changes to dir.
func Pushd(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "pushd DIR",
		Short: "Add a directory to the directory stack and change to it.",
	}

	return cmd.Run(s, args, func(dirs []string) int {
		if len(dirs) != 1 {
			s.Errorf("pushd: expected exactly one directory")
			return 1
		}

		wd, err := os.Getwd()
		if err != nil {
			s.Errorf("pushd: %v", err)
			return 1
		}
		if err := s.chdir(dirs[0]); err != nil {
			s.Errorf("pushd: %v", err)
			return 1
		}
		s.dirStack = append(s.dirStack, wd)
		s.printDirs(false)
		return 0
	})
}

// Popd changes back to the directory on top of the stack.
func Popd(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "popd",
		Short: "Remove the top directory from the directory stack and change to it.",
	}

	return cmd.Run(s, args, func([]string) int {
		if len(s.dirStack) == 0 {
			s.Errorf("popd: directory stack empty")
			return 1
		}

		top := s.dirStack[len(s.dirStack)-1]
		if err := s.chdir(top); err != nil {
			s.Errorf("popd: %v", err)
			return 1
		}
		s.dirStack = s.dirStack[:len(s.dirStack)-1]
		s.printDirs(false)
		return 0
	})
}

func Dirs(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "dirs [-cl]",
		Short: "Display the directory stack, most recent first.",
	}
	clear := cmd.Flags().Bool('c', "clear the directory stack")
	long := cmd.Flags().Bool('l', "don't abbreviate the home directory with ~")

	return cmd.Run(s, args, func([]string) int {
		if *clear {
			s.dirStack = nil
			return 0
		}
		s.printDirs(*long)
		return 0
	})
}

// printDirs prints the working directory followed by the stack.
func (s *Shell) printDirs(long bool) {
	wd, _ := os.Getwd()
	entries := []string{wd}
	for i := len(s.dirStack) - 1; i >= 0; i-- {
		entries = append(entries, s.dirStack[i])
	}

	if !long {
		for i, e := range entries {
			entries[i] = tildePath(e)
		}
	}
	fmt.Fprintln(s.Stdout(), strings.Join(entries, " "))
}

func init() {
	AllBuiltins["pushd"] = ShellBuiltinFunc(Pushd)
	AllBuiltins["popd"] = ShellBuiltinFunc(Popd)
	AllBuiltins["dirs"] = ShellBuiltinFunc(Dirs)
}

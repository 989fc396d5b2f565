package core

import (
	"fmt"
	"sort"
	"strings"
)

func Alias(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "alias [NAME[=VALUE]...]",
		Short: "Define or display aliases.",
	}

	return cmd.Run(s, args, func(defs []string) int {
		if len(defs) == 0 {
			var names []string
			for name := range s.aliases {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				s.printAlias(name)
			}
			return 0
		}

		ret := 0
		for _, def := range defs {
			name, value, ok := strings.Cut(def, "=")
			switch {
			case ok && name != "":
				s.aliases[name] = value
			case !ok && s.aliases[name] != "":
				s.printAlias(name)
			default:
				s.Errorf("alias: %s: not found", def)
				ret = 1
			}
		}
		return ret
	})
}

func (s *Shell) printAlias(name string) {
	value := strings.ReplaceAll(s.aliases[name], "'", `'\''`)
	fmt.Fprintf(s.Stdout(), "alias %s='%s'\n", name, value)
}

func Unalias(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "unalias [-a] NAME...",
		Short: "Remove each NAME from the list of defined aliases.",
	}
	all := cmd.Flags().Bool('a', "remove all alias definitions")

	return cmd.Run(s, args, func(names []string) int {
		if *all {
			s.aliases = make(map[string]string)
			return 0
		}
		if len(names) == 0 {
			cmd.PrintHelp(s.Stderr())
			return 2
		}

		ret := 0
		for _, name := range names {
			if _, ok := s.aliases[name]; !ok {
				s.Errorf("unalias: %s: not found", name)
				ret = 1
				continue
			}
			delete(s.aliases, name)
		}
		return ret
	})
}

func init() {
	AllBuiltins["alias"] = ShellBuiltinFunc(Alias)
	AllBuiltins["unalias"] = ShellBuiltinFunc(Unalias)
}

package core

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	envRegex = regexp.MustCompile(`\$\{\w+\}|\$\w+|\$\?|\$\$`)
)

// expand performs variable, tilde and wildcard expansion on every token.
// Tokens that expand to nothing are dropped.
func (s *Shell) expand(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		expanded := s.expandVars(tok)
		if expanded == "" && tok != "" {
			continue
		}
		expanded = expandTilde(expanded)
		out = append(out, expandGlob(expanded)...)
	}
	return out
}

func (s *Shell) expandVars(tok string) string {
	return envRegex.ReplaceAllStringFunc(tok, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		name = strings.TrimSuffix(strings.TrimPrefix(name, "{"), "}")

		switch name {
		case "?":
			return strconv.Itoa(s.lastRet)
		case "$":
			return strconv.Itoa(os.Getpid())
		default:
			return os.Getenv(name)
		}
	})
}

func expandTilde(tok string) string {
	if tok != "~" && !strings.HasPrefix(tok, "~/") {
		return tok
	}
	home := os.Getenv(EnvHome)
	if home == "" {
		return tok
	}
	return home + strings.TrimPrefix(tok, "~")
}

// expandGlob replaces a wildcard token with its sorted matches. Tokens
// without matches are kept as they are.
func expandGlob(tok string) []string {
	if !strings.ContainsAny(tok, "*?[") {
		return []string{tok}
	}
	matches, err := filepath.Glob(tok)
	if err != nil || len(matches) == 0 {
		return []string{tok}
	}
	sort.Strings(matches)
	return matches
}

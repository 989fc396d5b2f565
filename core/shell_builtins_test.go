package core

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/josephlewis42/jobsh/core/config"
	"github.com/josephlewis42/jobsh/core/jobs"
	"github.com/josephlewis42/jobsh/core/proc"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupBuiltin(t *testing.T) {
	for _, name := range []string{"cd", "pwd", "help", "exit", "export", "unset", "alias", "unalias", "pushd", "popd", "dirs", "history", "jobs", "fg", "bg"} {
		t.Run(name, func(t *testing.T) {
			builtin, ok := LookupBuiltin(name)
			assert.True(t, ok)
			assert.NotNil(t, builtin)
		})
	}

	_, ok := LookupBuiltin("ls")
	assert.False(t, ok)
}

type goldenTestSuite map[string]goldenTest

type goldenTest struct {
	Args []string
}

// Run executes each builtin against a shell with a fixed job table and
// compares its combined output with the golden file.
func (gts goldenTestSuite) Run(t *testing.T) {
	t.Helper()

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	for tn, tc := range gts {
		t.Run(tn, func(t *testing.T) {
			cfg, err := config.Load(t.TempDir())
			require.NoError(t, err)
			cfg.Color = colorNever

			out := &bytes.Buffer{}
			engine := proc.NewEngine(proc.Options{})
			s := NewShell(Options{Config: cfg, Engine: engine, Stdout: out, Stderr: out})
			populateJobs(t, engine.Jobs)

			builtin, ok := LookupBuiltin(tc.Args[0])
			require.True(t, ok, "not a builtin: %q", tc.Args[0])
			builtin.Main(s, tc.Args)

			g.Assert(t, tn, out.Bytes())
		})
	}
}

// populateJobs fills the table with jobs whose pids are never signalled.
func populateJobs(t *testing.T, table *jobs.Table) {
	t.Helper()

	for _, j := range []struct {
		pids    []int
		command string
		state   jobs.State
	}{
		{[]int{4001}, "sleep 100", jobs.Running},
		{[]int{4002, 4003}, "yes | head -n 1000000", jobs.Stopped},
		{[]int{4004}, "vim notes.txt", jobs.Stopped},
		{[]int{4005}, "make -j4", jobs.Running},
	} {
		_, err := table.Insert(j.pids, j.command, j.state)
		require.NoError(t, err)
	}
}

func TestBuiltins(t *testing.T) {
	cases := goldenTestSuite{
		"help":         {[]string{"help"}},
		"jobs":         {[]string{"jobs"}},
		"jobs-long":    {[]string{"jobs", "-l"}},
		"jobs-pids":    {[]string{"jobs", "-p"}},
		"jobs-running": {[]string{"jobs", "-r"}},
		"jobs-stopped": {[]string{"jobs", "-s"}},
		"alias":        {[]string{"alias"}},
		"dirs-empty":   {[]string{"popd"}},
	}

	cases.Run(t)
}

package jobs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countForeground(t *Table) int {
	n := 0
	for _, j := range t.All() {
		if j.State == Foreground {
			n++
		}
	}
	return n
}

func TestTable_sequentialIDs(t *testing.T) {
	table := NewTable()

	first, err := table.Insert([]int{100}, "sleep 5", Running)
	require.NoError(t, err)
	second, err := table.Insert([]int{200}, "sleep 6", Running)
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)

	// Removing a job doesn't compact the numbering.
	table.Remove(first)
	third, err := table.Insert([]int{300}, "sleep 7", Running)
	require.NoError(t, err)
	assert.Equal(t, 3, third.ID)

	ids := map[int]bool{}
	for _, j := range table.All() {
		assert.False(t, ids[j.ID], "duplicate id %d", j.ID)
		ids[j.ID] = true
	}
}

func TestTable_resetWhenEmpty(t *testing.T) {
	table := NewTable()

	a, _ := table.Insert([]int{100}, "a", Running)
	b, _ := table.Insert([]int{200}, "b", Stopped)
	table.Remove(a)
	table.Remove(b)
	assert.Equal(t, 0, table.Len())

	c, err := table.Insert([]int{300}, "c", Running)
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
}

func TestTable_singleForeground(t *testing.T) {
	table := NewTable()

	fg, err := table.Insert([]int{100}, "vi", Foreground)
	require.NoError(t, err)

	_, err = table.Insert([]int{200}, "less", Foreground)
	assert.True(t, errors.Is(err, ErrForegroundBusy))
	assert.Equal(t, 1, countForeground(table))

	bg, err := table.Insert([]int{300}, "sleep 5", Running)
	require.NoError(t, err)
	assert.True(t, errors.Is(table.SetState(bg, Foreground), ErrForegroundBusy))
	assert.Equal(t, Running, bg.State)

	require.NoError(t, table.SetState(fg, Stopped))
	require.NoError(t, table.SetState(bg, Foreground))
	assert.Equal(t, 1, countForeground(table))

	// Setting the current foreground job again is fine.
	assert.NoError(t, table.SetState(bg, Foreground))
}

func TestTable_Find(t *testing.T) {
	table := NewTable()
	job, _ := table.Insert([]int{100, 101}, "ls | wc", Running)

	found, err := table.Find(job.ID)
	require.NoError(t, err)
	assert.Same(t, job, found)

	_, err = table.Find(42)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.EqualError(t, err, "%42: no such job")

	byPid, ok := table.FindByPid(101)
	assert.True(t, ok)
	assert.Same(t, job, byPid)

	_, ok = table.FindByPid(999)
	assert.False(t, ok)
}

func TestTable_Latest(t *testing.T) {
	table := NewTable()

	_, err := table.Latest(Running, Stopped)
	assert.True(t, errors.Is(err, ErrNotFound))

	stopped, _ := table.Insert([]int{100}, "vi", Stopped)
	running, _ := table.Insert([]int{200}, "sleep 5", Running)

	latest, err := table.Latest(Running, Stopped)
	require.NoError(t, err)
	assert.Same(t, running, latest)

	latestStopped, err := table.Latest(Stopped)
	require.NoError(t, err)
	assert.Same(t, stopped, latestStopped)
}

func TestJob_members(t *testing.T) {
	table := NewTable()
	job, err := table.Insert([]int{10, 11, 12}, "a | b | c", Running)
	require.NoError(t, err)

	assert.Equal(t, 10, job.Pgid)
	assert.Equal(t, []int{10, 11, 12}, job.Pids())
	assert.Equal(t, 10, job.Leader())

	assert.True(t, job.MarkExited(10, 0))
	assert.False(t, job.MarkExited(99, 0))
	assert.Equal(t, 11, job.Leader())
	assert.False(t, job.Finished())

	job.MarkExited(11, 0)
	job.MarkExited(12, 3)
	assert.True(t, job.Finished())
	assert.Equal(t, 0, job.Leader())
	assert.Equal(t, 3, job.Status())
}

func TestTable_InsertRequiresProcess(t *testing.T) {
	_, err := NewTable().Insert(nil, "", Running)
	assert.Error(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Running", Running.String())
	assert.Equal(t, "Stopped", Stopped.String())
	assert.Equal(t, "Foreground", Foreground.String())
	assert.Equal(t, "Unknown", State(9).String())
}

func TestCommandText(t *testing.T) {
	assert.Equal(t, "sleep 5", CommandText([]string{"sleep", "5"}))
}

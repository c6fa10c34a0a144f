package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRun_StartsPending(t *testing.T) {
	run := NewCommandRun("cmd-1")

	assert.Equal(t, RunStatePending, run.CurrentState)
	assert.False(t, run.Settled())
	assert.False(t, run.Failed())
}

func TestCommandRun_Observe(t *testing.T) {
	t.Run("in-flight invocations move the run to in-progress", func(t *testing.T) {
		run := NewCommandRun("cmd-1")

		require.NoError(t, run.Observe(StatusSummary{InProgress: 2}))
		assert.Equal(t, RunStateInProgress, run.CurrentState)
		assert.False(t, run.Settled())

		// Repeated in-flight observations are a no-op, not an error.
		require.NoError(t, run.Observe(StatusSummary{InProgress: 1, Success: 1}))
		assert.Equal(t, RunStateInProgress, run.CurrentState)
	})

	t.Run("all successes settle the run as succeeded", func(t *testing.T) {
		run := NewCommandRun("cmd-1")

		require.NoError(t, run.Observe(StatusSummary{InProgress: 2}))
		require.NoError(t, run.Observe(StatusSummary{Success: 2}))

		assert.Equal(t, RunStateSucceeded, run.CurrentState)
		assert.True(t, run.Settled())
		assert.False(t, run.Failed())
	})

	t.Run("any failure settles the run as failed", func(t *testing.T) {
		run := NewCommandRun("cmd-1")

		require.NoError(t, run.Observe(StatusSummary{InProgress: 2}))
		require.NoError(t, run.Observe(StatusSummary{Success: 1, Failed: 1}))

		assert.Equal(t, RunStateFailed, run.CurrentState)
		assert.True(t, run.Settled())
		assert.True(t, run.Failed())
	})

	t.Run("a run can settle straight from pending", func(t *testing.T) {
		run := NewCommandRun("cmd-1")

		require.NoError(t, run.Observe(StatusSummary{Success: 1}))

		assert.Equal(t, RunStateSucceeded, run.CurrentState)
		assert.True(t, run.Settled())
	})
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskStatusTransitionsAreMonotonic(t *testing.T) {
	require.True(t, TaskStatusPending.CanTransitionTo(TaskStatusProcessing))
	require.True(t, TaskStatusProcessing.CanTransitionTo(TaskStatusCompleted))
	require.True(t, TaskStatusPending.CanTransitionTo(TaskStatusCompleted))

	// Never backwards.
	require.False(t, TaskStatusProcessing.CanTransitionTo(TaskStatusPending))
	require.False(t, TaskStatusCompleted.CanTransitionTo(TaskStatusProcessing))
	require.False(t, TaskStatusCompleted.CanTransitionTo(TaskStatusPending))

	// Idempotent re-application of the current status is allowed.
	require.True(t, TaskStatusProcessing.CanTransitionTo(TaskStatusProcessing))
	require.True(t, TaskStatusCompleted.CanTransitionTo(TaskStatusCompleted))

	// Unknown statuses go nowhere.
	require.False(t, TaskStatusPending.CanTransitionTo(TaskStatus("archived")))
}

func TestAgentStatusValid(t *testing.T) {
	for _, s := range []AgentStatus{AgentStatusIdle, AgentStatusWorking, AgentStatusStandby, AgentStatusActive} {
		require.True(t, s.Valid())
	}
	require.False(t, AgentStatus("sleeping").Valid())
	require.False(t, AgentStatus("").Valid())
}

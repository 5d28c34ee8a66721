package statemachine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type counter struct {
	n int
}

func stateCount(c *counter, emit func(string, StateEvent)) StateFn[counter] {
	c.n++
	if emit != nil {
		emit("count", StateEntered)
	}
	if c.n >= 3 {
		return stateDone
	}
	return stateCount
}

func stateDone(c *counter, emit func(string, StateEvent)) StateFn[counter] {
	if emit != nil {
		emit("done", StateEntered)
	}
	return nil
}

func TestDispatch_AdvancesThroughStates(t *testing.T) {
	c := &counter{}
	sm := NewStateMachine(c, stateCount)

	var events []string
	record := func(name string, _ StateEvent) { events = append(events, name) }

	sm.Dispatch(record)
	require.Equal(t, 1, c.n)
	require.NotNil(t, sm.GetCurrentState())

	sm.Dispatch(record)
	sm.Dispatch(record)
	require.Equal(t, 3, c.n)

	sm.Dispatch(record)
	require.Nil(t, sm.GetCurrentState())
	require.Equal(t, []string{"count", "count", "count", "done"}, events)
}

func TestDispatch_NilStateIsNoOp(t *testing.T) {
	c := &counter{n: 5}
	sm := NewStateMachine(c, stateDone)
	sm.Dispatch(nil)
	require.Nil(t, sm.GetCurrentState())

	sm.Dispatch(nil)
	require.Equal(t, 5, c.n)
}

func TestSetState_ForcesTransitionAndRunsEntry(t *testing.T) {
	c := &counter{}
	sm := NewStateMachine(c, stateDone)
	sm.SetState(stateCount)
	require.Equal(t, 1, c.n)
}

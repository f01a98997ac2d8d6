package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelVariablesDottedPaths(t *testing.T) {
	ch := NewChannel("uid-1")

	ch.SetVariable("a.b", 1)
	v, ok := ch.Variable("a.b")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// Intermediate map was created.
	parent, ok := ch.Variable("a")
	require.True(t, ok)
	assert.IsType(t, map[string]any{}, parent)

	ch.SetVariable("a.c", "two")
	v, ok = ch.Variable("a.c")
	require.True(t, ok)
	assert.Equal(t, "two", v)

	ch.DeleteVariable("a.b")
	_, ok = ch.Variable("a.b")
	assert.False(t, ok)

	// Deleting what was never set must not fail.
	ch.DeleteVariable("a.b")
	ch.DeleteVariable("never.was.here")

	_, ok = ch.Variable("a.c")
	assert.True(t, ok, "sibling survives deletion")
}

func TestChannelSetVariablesBatch(t *testing.T) {
	ch := NewChannel("uid-2")
	ch.SetVariables(map[string]any{
		"caller.name": "alice",
		"opt":         3,
	})

	v, _ := ch.Variable("caller.name")
	assert.Equal(t, "alice", v)
	v, _ = ch.Variable("opt")
	assert.Equal(t, 3, v)

	ch.DeleteVariables([]string{"caller.name", "opt"})
	_, ok := ch.Variable("caller.name")
	assert.False(t, ok)
}

func TestChannelLifecycle(t *testing.T) {
	ch := NewChannel("uid-3")
	assert.Equal(t, StartNodeID, ch.NodeID)
	assert.False(t, ch.Ended())

	ch.Advance("menu", StateNone)
	assert.Equal(t, "menu", ch.NodeID)

	ch.Advance("", StateEnd)
	assert.True(t, ch.Ended())

	ch.SetVariable("x", 1)
	_ = ch.Stack.Push("sub")
	ch.Reset()

	assert.Equal(t, StartNodeID, ch.NodeID)
	assert.False(t, ch.Ended())
	assert.Empty(t, ch.Variables)
	assert.True(t, ch.Stack.Empty())
	assert.Equal(t, "uid-3", ch.UID, "identity survives reset")
}

func TestChannelJSONRoundTrip(t *testing.T) {
	ch := NewChannel("uid-4")
	ch.ID = 7
	ch.SetVariable("a.b", "deep")
	require.NoError(t, ch.Stack.Push("sub1"))
	ch.Advance("menu", StateInput)

	data, err := json.Marshal(ch)
	require.NoError(t, err)

	var restored Channel
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, int64(7), restored.ID)
	assert.Equal(t, "uid-4", restored.UID)
	assert.Equal(t, "menu", restored.NodeID)
	assert.Equal(t, StateInput, restored.State)

	v, ok := restored.Variable("a.b")
	require.True(t, ok)
	assert.Equal(t, "deep", v)

	top, ok := restored.CallStackOrNew().Peek()
	require.True(t, ok)
	assert.Equal(t, "sub1", top)
}

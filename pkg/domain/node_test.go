package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNodeGetData(t *testing.T) {
	raw := map[string]any{
		"id":   "ask",
		"type": "get_data",
		"file": "beep",
		// YAML authors write numbers as numbers; fields stay templated strings.
		"timeout":             5000,
		"max_digits":          1,
		"variable":            "opt",
		"middleware":          "tts-main",
		"validation":          "{{ opt }}",
		"validation_attempts": 3,
		"cases": []map[string]any{
			{"id": "1", "o_connection": "m1"},
			{"id": "default", "o_connection": "m2", "variables": map[string]any{"retry": true}},
		},
		"o_connection": "finish",
	}

	node, err := DecodeNode(raw)
	require.NoError(t, err)
	assert.Equal(t, "ask", node.ID)
	assert.Equal(t, KindGetData, node.Kind)
	assert.Equal(t, "finish", node.Next)

	spec, ok := node.Spec.(*GetDataSpec)
	require.True(t, ok)
	assert.Equal(t, "5000", spec.Timeout)
	assert.Equal(t, "1", spec.MaxDigits)
	assert.Equal(t, []string{"tts-main"}, spec.Middleware, "scalar middleware becomes a one-element list")
	assert.Equal(t, 3, spec.ValidationAttempts)
	require.Len(t, spec.Cases, 2)
	assert.Equal(t, "m1", spec.Cases[0].OConnection)
	assert.Equal(t, map[string]any{"retry": true}, spec.Cases[1].Variables)
}

func TestDecodeNodeHTTPRequest(t *testing.T) {
	raw := map[string]any{
		"id":     "lookup",
		"type":   "http_request",
		"method": "POST",
		"url":    "http://svc/api",
		"headers": map[string]any{
			"Authorization": "Bearer {{ token }}",
		},
		"json":       map[string]any{"q": "{{ opt }}"},
		"cookies":    []any{"session"},
		"variables":  map[string]any{"result": "data.value"},
		"middleware": "auth-main",
		"cases": []map[string]any{
			{"id": "200", "o_connection": "ok"},
			{"id": "default", "o_connection": "fail"},
		},
	}

	node, err := DecodeNode(raw)
	require.NoError(t, err)

	spec, ok := node.Spec.(*HTTPRequestSpec)
	require.True(t, ok)
	assert.Equal(t, "POST", spec.Method)
	assert.Equal(t, "auth-main", spec.Middleware)
	assert.Equal(t, []string{"session"}, spec.Cookies)
	assert.Equal(t, map[string]string{"result": "data.value"}, spec.Variables)
}

func TestDecodeNodeSetVars(t *testing.T) {
	raw := map[string]any{
		"id":   "vars",
		"type": "set_vars",
		"variables": map[string]any{
			"set":   map[string]any{"a.b": 1},
			"unset": []any{"old"},
		},
	}

	node, err := DecodeNode(raw)
	require.NoError(t, err)

	spec := node.Spec.(*SetVarsSpec)
	assert.Equal(t, []string{"old"}, spec.Variables.Unset)
	assert.Contains(t, spec.Variables.Set, "a.b")
}

func TestDecodeNodeErrors(t *testing.T) {
	_, err := DecodeNode(map[string]any{"type": "answer"})
	assert.Error(t, err, "missing id")

	_, err = DecodeNode(map[string]any{"id": "x", "type": "teleport"})
	assert.Error(t, err, "unknown type")
}

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertSchema(t *testing.T) {
	t.Parallel()

	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"q": map[string]any{"type": "string"},
		},
		"required": []string{"q"},
	}

	var out struct {
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	require.NoError(t, ConvertSchema(params, &out))
	assert.Equal(t, "object", out.Type)
	assert.Contains(t, out.Properties, "q")
	assert.Equal(t, []string{"q"}, out.Required)
}

func TestConvertSchemaNilDefaultsToObject(t *testing.T) {
	t.Parallel()

	var out map[string]any
	require.NoError(t, ConvertSchema(nil, &out))
	assert.Equal(t, map[string]any{"type": "object"}, out)
}

func TestResultOutput(t *testing.T) {
	t.Parallel()

	res := &ToolCallResult{Content: []Content{
		{Type: "text", Text: "part one"},
		{Type: "text", Text: " part two"},
	}}
	assert.Equal(t, "part one part two", res.Output())

	assert.False(t, ResultSuccess("ok").IsError)
	assert.True(t, ResultError("bad").IsError)
}

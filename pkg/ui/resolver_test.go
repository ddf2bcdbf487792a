package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadkit/threadkit/pkg/tools"
)

func TestResolveBuiltinTodoList(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(nil)
	require.NoError(t, err)

	result := tools.ResultSuccess("2 todos")
	result.Structured = []map[string]string{
		{"status": "pending", "priority": "high", "description": "write tests"},
		{"status": "done", "priority": "low", "description": "make coffee"},
	}

	resource, err := r.Resolve("todo_list", result)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resource.URI, "ui://todo_list/"))
	assert.Equal(t, "text/html", resource.MimeType)
	assert.Contains(t, resource.Text, "write tests")
	assert.Contains(t, resource.Text, `data-status="done"`)
	assert.Contains(t, resource.Text, `data-priority="high"`)
}

func TestResolveEmptyPayload(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(nil)
	require.NoError(t, err)

	resource, err := r.Resolve("todo_list", tools.ResultSuccess("no todos"))
	require.NoError(t, err)
	assert.Contains(t, resource.Text, "No todos yet.")
}

func TestResolveUnknownRef(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(nil)
	require.NoError(t, err)

	_, err = r.Resolve("no_such_template", tools.ResultSuccess("x"))
	assert.Error(t, err)
}

func TestResolveOverrideReplacesBuiltin(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(map[string]string{
		"todo_list": `<span>{{len (aslist .)}} items</span>`,
	})
	require.NoError(t, err)

	result := tools.ResultSuccess("")
	result.Structured = []string{"a", "b", "c"}

	resource, err := r.Resolve("todo_list", result)
	require.NoError(t, err)
	assert.Equal(t, "<span>3 items</span>", resource.Text)
}

func TestResolveCustomTemplate(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(map[string]string{
		"weather": `<div class="weather">{{.city}}: {{.temp}}</div>`,
	})
	require.NoError(t, err)

	result := tools.ResultSuccess("")
	result.Structured = map[string]any{"city": "Paris", "temp": "21C"}

	resource, err := r.Resolve("weather", result)
	require.NoError(t, err)
	assert.Equal(t, `<div class="weather">Paris: 21C</div>`, resource.Text)
}

func TestNewResolverRejectsBadTemplate(t *testing.T) {
	t.Parallel()

	_, err := NewResolver(map[string]string{"bad": `{{range`})
	assert.Error(t, err)
}

func TestResolveEscapesPayload(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(map[string]string{
		"echo": `<div>{{.text}}</div>`,
	})
	require.NoError(t, err)

	result := tools.ResultSuccess("")
	result.Structured = map[string]any{"text": `<script>alert(1)</script>`}

	resource, err := r.Resolve("echo", result)
	require.NoError(t, err)
	assert.NotContains(t, resource.Text, "<script>")
}
